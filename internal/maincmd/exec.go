package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/tarn/internal/config"
	"github.com/mna/tarn/lang/machine"
	"github.com/tliron/commonlog"
)

func (c *Cmd) Exec(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return printError(stdio, err)
	}
	if cfg.Trace && !c.Trace {
		commonlog.Configure(2, nil)
	}

	for _, file := range args {
		m, err := loadModule(file)
		if err != nil {
			return printError(stdio, err)
		}

		th := &machine.Thread{
			Name:        file,
			Stdout:      stdio.Stdout,
			Predeclared: machine.Universe(),
		}
		cfg.Apply(th)

		mod, res, err := th.RunModule(ctx, m)
		if err != nil {
			return printError(stdio, err)
		}
		fmt.Fprintln(stdio.Stdout, res)
		for _, name := range mod.ExportNames() {
			fmt.Fprintf(stdio.Stdout, "export %s = %s\n", name, mod.Exports[name])
		}
	}
	return nil
}
