package main

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teenjuna/cfcode/blockstore"
	"github.com/teenjuna/cfcode/codec"
	"github.com/teenjuna/cfcode/codec/gob"
	codecjson "github.com/teenjuna/cfcode/codec/json"
	"github.com/teenjuna/cfcode/codec/msgp"
)

func (a *app) storeCmd() *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage raw variables in a block store",
	}
	cmd.PersistentFlags().StringVar(&db, "db", "cfcode.db", "Block store database file")

	open := func(configFuncs ...blockstore.ConfigFunc) (*blockstore.Store, error) {
		store, err := blockstore.Open(append([]blockstore.ConfigFunc{
			func(c *blockstore.Config) { c.File(db) },
		}, configFuncs...)...)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", db, err)
		}
		return store, nil
	}

	var (
		chunk     int
		codecName string
	)
	put := &cobra.Command{
		Use:   "put FILE",
		Short: "Store the variable described by FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			c, err := blockCodec(codecName)
			if err != nil {
				return err
			}
			if chunk < 0 {
				return errors.New("chunk can't be < 0")
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if doc.Name == "" {
				return fmt.Errorf("read %s: name is required", args[0])
			}
			v, err := doc.variable(0)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			store, err := open(func(cfg *blockstore.Config) { cfg.Codec(c) })
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, store.Close()) }()

			if err := store.Save(doc.Name, v, chunk); err != nil {
				return err
			}
			a.logger.Info("variable stored", zap.String("variable", doc.Name), zap.String("codec", c.Name()))
			return nil
		},
	}
	put.Flags().IntVar(&chunk, "chunk", 0, "Store blocks of N rows (0 stores a single block)")
	put.Flags().StringVar(&codecName, "codec", "json", "Block codec: json, gob or msgp")

	var decode bool
	get := &cobra.Command{
		Use:   "get NAME",
		Short: "Print a stored variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, store.Close()) }()

			v, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if decode {
				chain, err := a.chain(nil)
				if err != nil {
					return err
				}
				if v, err = chain.Decode(v, args[0]); err != nil {
					return err
				}
			}

			return write(cmd.OutOrStdout(), args[0], v)
		},
	}
	get.Flags().BoolVar(&decode, "decode", false, "Decode the variable before printing it")

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List stored variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, store.Close()) }()

			names, err := store.Names()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a stored variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, store.Close()) }()

			return store.Delete(args[0])
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print block store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, store.Close()) }()

			st, err := store.Stats()
			if err != nil {
				return err
			}
			data, err := json.Marshal(st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return nil
		},
	}

	cmd.AddCommand(put, get, ls, rm, stats)

	return cmd
}

func blockCodec(name string) (codec.Codec, error) {
	for _, c := range []codec.Codec{codecjson.New(), gob.New(), msgp.New()} {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
