package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/importer"
	"github.com/ziadkadry99/themestudio/internal/progress"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

var (
	importAuthor  string
	importExclude []string
	importDryRun  bool
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Add catalog themes from a directory of HTML files",
	Long: `Walks a directory for HTML files and adds each one to the catalog. The
title comes from <title> (or the file name) and the description from the
description meta tag. Themes whose title is already in the catalog are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importAuthor, "author", "", "author recorded on imported themes")
	importCmd.Flags().StringSliceVar(&importExclude, "exclude", nil, "extra glob patterns to skip")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "list what would be imported without writing")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	im := importer.New(themes.NewStore(database), audit.NewStore(database), progress.NewReporter("themes"))
	res, err := im.Import(context.Background(), importer.Options{
		Dir:     args[0],
		Include: cfg.Import.Include,
		Exclude: append(append([]string{}, cfg.Import.Exclude...), importExclude...),
		Author:  importAuthor,
		DryRun:  importDryRun,
	})
	if err != nil {
		return err
	}

	verb := "Imported"
	if importDryRun {
		verb = "Would import"
	}
	fmt.Printf("%s %d theme(s)\n", verb, len(res.Imported))
	for _, t := range res.Imported {
		fmt.Printf("  + %s\n", t.Title)
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("Skipped %d file(s)\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Printf("  - %s: %s\n", s.Path, s.Reason)
		}
	}
	return nil
}
