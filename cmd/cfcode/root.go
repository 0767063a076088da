package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teenjuna/cfcode"
)

type app struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "cfcode",
		Short: "Decode and encode CF variables",
		Long: `cfcode applies the CF storage conventions to variables.

Decoding masks fill values, applies scale_factor/add_offset and reinterprets
_Unsigned integers. Encoding reverses it. Variables are read from YAML files
and written as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.codeCmd("decode", "Decode a variable from its storage representation"),
		a.codeCmd("encode", "Encode a variable into its storage representation"),
		a.storeCmd(),
	)

	return root
}

func (a *app) codeCmd(op, short string) *cobra.Command {
	var (
		chunk  int
		coders []string
	)

	cmd := &cobra.Command{
		Use:   op + " FILE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			v, err := doc.variable(chunk)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			chain, err := a.chain(coders)
			if err != nil {
				return err
			}

			if op == "decode" {
				v, err = chain.Decode(v, doc.Name)
			} else {
				v, err = chain.Encode(v, doc.Name)
			}
			if err != nil {
				return err
			}

			return write(cmd.OutOrStdout(), doc.Name, v)
		},
	}
	cmd.Flags().IntVar(&chunk, "chunk", 0, "Split the data into blocks of N rows")
	cmd.Flags().StringSliceVar(&coders, "coders", nil, "Coders in decoding order (default unsigned,mask,scale_offset)")

	return cmd
}

func (a *app) chain(names []string) (*cfcode.Chain, error) {
	coders := make([]cfcode.Coder, 0, len(names))
	for _, name := range names {
		kind, err := cfcode.ParseCoderKind(name)
		if err != nil {
			return nil, err
		}
		coder, err := cfcode.NewCoder(kind)
		if err != nil {
			return nil, err
		}
		coders = append(coders, coder)
	}

	return cfcode.NewChain(func(c *cfcode.ChainConfig) {
		c.Logger(a.logger)
		if len(coders) > 0 {
			c.Coders(coders...)
		}
	}), nil
}

func write(w io.Writer, name string, v *cfcode.Variable) error {
	doc, err := newDocument(name, v)
	if err != nil {
		return err
	}
	return doc.write(w)
}
