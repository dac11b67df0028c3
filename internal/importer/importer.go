// Package importer adds catalog themes from a directory of HTML files.
package importer

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"unicode"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/markup"
	"github.com/ziadkadry99/themestudio/internal/progress"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

// Options control an import run.
type Options struct {
	Dir         string
	Include     []string
	Exclude     []string
	Author      string
	MaxFileSize int64
	DryRun      bool // report what would be imported without writing
}

// Skipped is a file that was not imported.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result summarizes an import run.
type Result struct {
	Imported []themes.Theme `json:"imported"`
	Skipped  []Skipped      `json:"skipped"`
}

// Importer writes themes found on disk into the catalog.
type Importer struct {
	store    *themes.Store
	auditLog *audit.Store
	reporter progress.Reporter
}

// New creates an Importer. auditLog and reporter may be nil.
func New(store *themes.Store, auditLog *audit.Store, reporter progress.Reporter) *Importer {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Importer{store: store, auditLog: auditLog, reporter: reporter}
}

// Import walks opts.Dir and creates one theme per HTML file. Titles come
// from <title> (or the file name), descriptions from the description meta
// tag. Markup is stored sanitized. Files whose title is already in the
// catalog, or whose content duplicates an earlier file, are skipped.
func (im *Importer) Import(ctx context.Context, opts Options) (*Result, error) {
	files, err := Walk(WalkConfig{
		RootDir:     opts.Dir,
		Include:     opts.Include,
		Exclude:     opts.Exclude,
		MaxFileSize: opts.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}

	existing, err := im.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	titles := make(map[string]bool, len(existing))
	for _, t := range existing {
		titles[strings.ToLower(t.Title)] = true
	}

	res := &Result{}
	hashes := make(map[string]string)
	im.reporter.Start(len(files))
	defer im.reporter.Finish()

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		im.reporter.Update(i+1, f.RelPath)

		if first, dup := hashes[f.ContentHash]; dup {
			res.Skipped = append(res.Skipped, Skipped{Path: f.RelPath, Reason: "same content as " + first})
			continue
		}
		hashes[f.ContentHash] = f.RelPath

		raw := string(f.Content)
		doc := markup.Parse(raw)
		if doc.Body() == nil || strings.TrimSpace(doc.Body().VisibleText()) == "" {
			res.Skipped = append(res.Skipped, Skipped{Path: f.RelPath, Reason: "no visible content"})
			continue
		}
		title := doc.Title()
		if title == "" {
			title = titleFromPath(f.RelPath)
		}
		if titles[strings.ToLower(title)] {
			res.Skipped = append(res.Skipped, Skipped{Path: f.RelPath, Reason: fmt.Sprintf("a theme titled %q already exists", title)})
			continue
		}
		titles[strings.ToLower(title)] = true

		t := themes.Theme{
			Title:       title,
			Description: doc.MetaDescription(),
			Author:      opts.Author,
			Markup:      markup.Sanitize(raw),
		}
		if opts.DryRun {
			res.Imported = append(res.Imported, t)
			continue
		}
		created, err := im.store.Create(ctx, t)
		if err != nil {
			return res, fmt.Errorf("importing %s: %w", f.RelPath, err)
		}
		im.auditLog.Record(ctx, audit.SystemActor, audit.ActionThemeImported, created.ID, f.RelPath)
		log.Printf("importer: imported %s as %q (%s)", f.RelPath, created.Title, created.ID)
		res.Imported = append(res.Imported, *created)
	}
	return res, nil
}

// titleFromPath turns "landing/coffee-shop.html" into "Coffee Shop".
func titleFromPath(rel string) string {
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	if strings.EqualFold(name, "index") && path.Dir(rel) != "." {
		name = path.Base(path.Dir(rel))
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == '.' || unicode.IsSpace(r) })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return "Untitled"
	}
	return strings.Join(words, " ")
}
