package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/coreybb/versefeed/datastore"
	"github.com/coreybb/versefeed/models"
	"github.com/coreybb/versefeed/processing"
	"github.com/spf13/cobra"
)

var (
	mergeOut       string
	resetSessionID string
	resetForget    bool
)

type mergeDump struct {
	Report processing.MergeReport `json:"report"`
	Verses []models.VerseRecord   `json:"verses"`
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Load and merge the sources, then print the alignment report",
	Long: `Loads both configured sources exactly as the server does, merges them and
prints how they lined up. With --out the merged verses are written as JSON
("-" for stdout).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, fetcher, err := buildFetcher(cfg)
		if err != nil {
			return err
		}
		store, report, err := loadVerseStore(cmd.Context(), cfg, fetcher)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "verses:              %d\n", report.Records)
		fmt.Fprintf(w, "groups:              %d\n", len(store.Groups()))
		fmt.Fprintf(w, "translations used:   %d\n", report.FlatConsumed)
		fmt.Fprintf(w, "excess translations: %d\n", report.FlatExcess)
		fmt.Fprintf(w, "missing translation: %d\n", report.MissingSecond)
		if cfg.Sources.StrictMerge {
			fmt.Fprintf(w, "mismatches:          %d\n", len(report.Mismatches))
		}

		if mergeOut == "" {
			return nil
		}
		verses := make([]models.VerseRecord, 0, store.Size())
		for i := 0; i < store.Size(); i++ {
			v, err := store.At(i)
			if err != nil {
				return err
			}
			verses = append(verses, v)
		}
		return writeJSON(cmd.OutOrStdout(), mergeOut, mergeDump{Report: report, Verses: verses})
	},
}

var resetProgressCmd = &cobra.Command{
	Use:   "reset-progress",
	Short: "Rewind a session's sequential reading position to the first verse",
	Long: `Rewinds the stored resume cursor of one session. With --forget every
stored setting of the session is removed, so it starts over with the defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if resetSessionID == "" {
			return fmt.Errorf("--session is required")
		}
		if cfg.Database.Driver == driverMemory {
			return fmt.Errorf("the memory driver keeps no progress between runs")
		}

		db, err := datastore.OpenDatabase(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := datastore.NewSettingsRepository(db, cfg.Database.Driver)
		if resetForget {
			if err := repo.Delete(cmd.Context(), resetSessionID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings removed for session %s.\n", resetSessionID)
			return nil
		}
		if err := repo.Set(cmd.Context(), resetSessionID, models.SettingResumeCursor, "0"); err != nil {
			return fmt.Errorf("failed to reset progress for session %s: %w", resetSessionID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Progress reset to start for session %s.\n", resetSessionID)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "", `write merged verses as JSON to this file ("-" for stdout)`)
	resetProgressCmd.Flags().StringVar(&resetSessionID, "session", "", "session ID whose progress is reset")
	resetProgressCmd.Flags().BoolVar(&resetForget, "forget", false, "remove all stored settings of the session")
}

func writeJSON(stdout io.Writer, target string, payload any) error {
	var w io.Writer = stdout
	if target != "-" {
		f, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(payload)
}
