// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/document"
	"github.com/pdiddy/concept-engine/internal/library"
	"github.com/pdiddy/concept-engine/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage stored concepts and patterns (add, get, activate, list)",
	Long: `Library manages a local SQLite store of concept and pattern documents.
Every write appends a revision; activation appends a copy marked active.
Lookups by document id prefer the active revision.`,
}

// --- add subcommand ---

var libraryAddCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Append concept or pattern documents as draft revisions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLibraryAdd,
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	activate, _ := cmd.Flags().GetBool("activate")

	store, err := library.Open(cfg.Library)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var stored []types.Revision
	switch kind {
	case library.KindConcept:
		concepts, err := document.LoadConcepts(args...)
		if err != nil {
			return err
		}
		for _, c := range concepts {
			c, err := store.AppendConcept(ctx, c)
			if err != nil {
				return err
			}
			stored = append(stored, types.Revision{Kind: kind, UUID: c.UUID, DocID: c.ConceptID, Status: c.Status})
		}
	case library.KindPattern:
		for _, path := range args {
			p, err := document.LoadPattern(path)
			if err != nil {
				return err
			}
			sp, err := store.AppendPattern(ctx, *p)
			if err != nil {
				return err
			}
			stored = append(stored, types.Revision{Kind: kind, UUID: sp.UUID, DocID: sp.PatternID, Status: sp.Status})
		}
	default:
		return fmt.Errorf("%w: %q", library.ErrInvalidKind, kind)
	}

	for _, rev := range stored {
		if activate {
			rec, err := store.Activate(ctx, kind, rev.UUID)
			if err != nil {
				return err
			}
			rev.Status = rec.Status
		}
		fmt.Fprintf(out, "%s  %s  %s\n", rev.UUID, rev.Status, rev.DocID)
	}
	return nil
}

// --- get subcommand ---

var libraryGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print a stored document by its concept or pattern id",
	Long: `Get prints the active revision of a document, or its newest draft when
no revision is active. Use --uuid to look up by revision uuid instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibraryGet,
}

func runLibraryGet(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	byUUID, _ := cmd.Flags().GetBool("uuid")
	format, _ := cmd.Flags().GetString("format")
	if format == formatText {
		format = document.FormatYAML
	}

	store, err := library.Open(cfg.Library)
	if err != nil {
		return err
	}
	defer store.Close()

	var rec library.Record
	if byUUID {
		rec, err = store.Latest(cmd.Context(), kind, args[0])
	} else {
		rec, err = store.LatestByID(cmd.Context(), kind, args[0])
	}
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(rec.Body, &doc); err != nil {
		return fmt.Errorf("decoding %s %s: %w", kind, rec.UUID, err)
	}
	return document.Encode(cmd.OutOrStdout(), doc, format)
}

// --- activate subcommand ---

var libraryActivateCmd = &cobra.Command{
	Use:   "activate UUID",
	Short: "Mark the latest revision of a document active",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryActivate,
}

func runLibraryActivate(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")

	store, err := library.Open(cfg.Library)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Activate(cmd.Context(), kind, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Activated %s %s (%s)\n", rec.Kind, rec.DocID, rec.UUID)
	return nil
}

// --- list subcommand ---

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the latest revision of every stored document",
	RunE:  runLibraryList,
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")

	store, err := library.Open(cfg.Library)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(cmd.Context(), kind)
	if err != nil {
		return err
	}

	revs := make([]types.Revision, len(recs))
	for i, r := range recs {
		revs[i] = r.Revision
	}
	return writeDocument(cmd, revs, func(w io.Writer) error {
		return formatLibraryList(w, revs)
	})
}

func formatLibraryList(w io.Writer, revs []types.Revision) error {
	if len(revs) == 0 {
		fmt.Fprintln(w, "No documents stored.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-6s  %-20s  %s\n", "UUID", "Status", "Created", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range revs {
		fmt.Fprintf(w, "%-36s  %-6s  %-20s  %s\n",
			r.UUID, r.Status, r.CreatedAt.Format("2006-01-02 15:04:05"), r.DocID)
	}
	fmt.Fprintf(w, "\n%d documents\n", len(revs))
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{libraryAddCmd, libraryGetCmd, libraryActivateCmd, libraryListCmd} {
		cmd.Flags().StringP("kind", "k", library.KindConcept, "document kind: concept or pattern")
		libraryCmd.AddCommand(cmd)
	}
	libraryAddCmd.Flags().Bool("activate", false, "activate each document after adding it")
	libraryGetCmd.Flags().Bool("uuid", false, "treat the argument as a revision uuid")
	addFormatFlag(libraryGetCmd)
	addFormatFlag(libraryListCmd)

	rootCmd.AddCommand(libraryCmd)
}
