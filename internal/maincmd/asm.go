package maincmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mna/mainer"
	"github.com/mna/tarn/lang/compiler"
)

// ImageExt is the file extension of binary module images.
const ImageExt = ".tarnc"

func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}

		b, err := os.ReadFile(file)
		if err != nil {
			return printError(stdio, err)
		}
		m, err := compiler.Asm(b)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		img, err := compiler.Encode(m)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}

		out := c.Output
		if out == "" {
			out = strings.TrimSuffix(file, filepath.Ext(file)) + ImageExt
		}
		if err := os.WriteFile(out, img, 0600); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}

		m, err := loadModule(file)
		if err != nil {
			return printError(stdio, err)
		}
		b, err := compiler.Dasm(m)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		if _, err := stdio.Stdout.Write(b); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

// loadModule loads the compiled module from file, in textual form if it has
// the .asm extension, in binary image form otherwise.
func loadModule(file string) (*compiler.Module, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var m *compiler.Module
	if filepath.Ext(file) == ".asm" {
		m, err = compiler.Asm(b)
	} else {
		m, err = compiler.Decode(b)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return m, nil
}
