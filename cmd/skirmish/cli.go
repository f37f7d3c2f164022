package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aircraftstudio/skirmish/internal/assets"
	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/internal/database"
	"github.com/aircraftstudio/skirmish/internal/leaderboard"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/internal/storage/memory"
	"github.com/aircraftstudio/skirmish/internal/util"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/google/uuid"
)

const remoteTimeout = 15 * time.Second

// openSource opens the leaderboard a read command works on: a SQLite dump
// when from is set, otherwise the configured backend.
func (a *app) openSource(from string) (storage.Backend, error) {
	if from != "" {
		return a.openDump(from)
	}
	return a.openStorage()
}

func cmdTop(args []string) error {
	fs, configDir := newFlagSet("top")
	limit := fs.Int("limit", leaderboard.DefaultLimit, "number of entries")
	sortKey := fs.String("sort", string(core.SortScore), "ordering: score or time")
	remote := fs.Bool("remote", false, "read from api.serverUrl")
	from := fs.String("from", "", "read a SQLite dump instead of the configured storage")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup("top", fs, *configDir, false)
	if err != nil {
		return err
	}
	defer a.close()

	n, key := leaderboard.ParseTopQuery(fmt.Sprint(*limit), *sortKey)

	var entries []core.LeaderboardEntry
	if *remote {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		entries, err = apiClient().FetchTop(ctx, n, key)
	} else {
		var backend storage.Backend
		backend, err = a.openSource(*from)
		if err != nil {
			return err
		}
		defer backend.Close()
		entries, err = backend.TopResults(n, key)
	}
	if err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}

	printTop(os.Stdout, entries)
	return nil
}

func printTop(w io.Writer, entries []core.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no entries")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPILOT\tSCORE\tTIME\tACCURACY\tAIRCRAFT\tDATE")
	for i, e := range entries {
		clearTime := "-"
		if e.ClearTime != nil {
			clearTime = fmt.Sprintf("%.1fs", *e.ClearTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%.0f%%\t%s\t%s\n",
			i+1, e.User.Name, e.Score, clearTime, e.Accuracy*100,
			util.FirstNonEmpty(util.Deref(e.Model.Name), util.Deref(e.Model.ID), "-"),
			e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func cmdModels(args []string) error {
	fs, configDir := newFlagSet("models")
	remote := fs.Bool("remote", false, "use the catalogue of api.serverUrl")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: models list|import <file.glb> [name]|delete <id>|save <id> [dir]")
	}

	a, err := setup("models", fs, *configDir, false)
	if err != nil {
		return err
	}
	defer a.close()

	sub, rest := fs.Arg(0), fs.Args()[1:]

	if *remote {
		return remoteModels(sub, rest)
	}

	backend, err := a.openStorage()
	if err != nil {
		return err
	}
	defer backend.Close()
	catalogue := catalogueOf(backend)
	if catalogue == nil {
		return fmt.Errorf("storage %q keeps no model catalogue", config.GetStorageConfig().Type)
	}

	switch sub {
	case "list":
		models, err := catalogue.ListModels()
		if err != nil {
			return err
		}
		printModels(os.Stdout, models)
		return nil

	case "import":
		if len(rest) == 0 {
			return errors.New("usage: models import <file.glb> [name]")
		}
		entry, err := importModel(catalogue, rest[0], strings.Join(rest[1:], " "), time.Now())
		if err != nil {
			return err
		}
		a.logger.Info("Imported model", "id", entry.ID, "name", entry.Name, "file", rest[0])
		fmt.Printf("imported %s as %s\n", entry.Name, entry.ID)
		return nil

	case "delete":
		if len(rest) != 1 {
			return errors.New("usage: models delete <id>")
		}
		if err := catalogue.DeleteModel(rest[0]); err != nil {
			return err
		}
		a.logger.Info("Deleted model", "id", rest[0])
		fmt.Printf("deleted %s\n", rest[0])
		return nil

	case "save":
		if len(rest) == 0 {
			return errors.New("usage: models save <id> [dir]")
		}
		dir := "."
		if len(rest) > 1 {
			dir = rest[1]
		}
		path, err := saveModel(catalogue, rest[0], dir)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}
	return fmt.Errorf("unknown models command %q", sub)
}

func remoteModels(sub string, rest []string) error {
	client := apiClient()
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()
	switch sub {
	case "list":
		models, err := client.ListModels(ctx)
		if err != nil {
			return err
		}
		printModels(os.Stdout, models)
		return nil
	case "import":
		if len(rest) == 0 {
			return errors.New("usage: models --remote import <file.glb> [name]")
		}
		entry, err := client.UploadModel(ctx, rest[0], strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("uploaded %s as %s\n", entry.Name, entry.ID)
		return nil
	}
	return fmt.Errorf("models %s is not available with --remote", sub)
}

// importModel validates a GLB file and adds it to the catalogue. An empty
// name falls back to the file name.
func importModel(catalogue storage.Catalogue, path, name string, now time.Time) (core.ModelEntry, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return core.ModelEntry{}, err
	}
	if err := assets.Validate(blob); err != nil {
		return core.ModelEntry{}, fmt.Errorf("%s: %w", path, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	id := uuid.NewString()
	entry := core.ModelEntry{
		ID:        id,
		Name:      name,
		AssetRef:  "/api/models/" + id,
		CreatedAt: now.UTC(),
	}
	if err := catalogue.SaveModel(entry, blob); err != nil {
		return core.ModelEntry{}, err
	}
	return entry, nil
}

// saveModel writes a catalogue model to dir as <name>.glb.
func saveModel(catalogue storage.Catalogue, id, dir string) (string, error) {
	entry, blob, err := catalogue.LoadModel(id)
	if err != nil {
		return "", err
	}
	name := util.FirstNonEmpty(util.SafeName(entry.Name), entry.ID)
	path := filepath.Join(dir, name+".glb")
	if err := os.WriteFile(path, blob, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func printModels(w io.Writer, models []core.ModelEntry) {
	if len(models) == 0 {
		fmt.Fprintln(w, "no models")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Name, m.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func cmdExport(args []string) error {
	fs, configDir := newFlagSet("export")
	from := fs.String("from", "", "export a SQLite dump instead of the configured storage")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup("export", fs, *configDir, false)
	if err != nil {
		return err
	}
	defer a.close()

	backend, err := a.openSource(*from)
	if err != nil {
		return err
	}
	defer backend.Close()

	path, err := exportLeaderboard(backend, config.GetStorageConfig().Memory)
	if err != nil {
		return err
	}
	a.logger.Info("Exported leaderboard", "path", path)
	fmt.Println(path)
	return nil
}

// exportLeaderboard writes every entry of backend to a JSON file. Backends
// without their own export are copied into a memory backend first.
func exportLeaderboard(backend storage.Backend, cfg config.MemoryConfig) (string, error) {
	if e, ok := backend.(storage.Exportable); ok {
		return e.Export()
	}
	entries, err := backend.TopResults(0, core.SortScore)
	if err != nil {
		return "", err
	}
	mem := memory.New(cfg)
	for i := range entries {
		if err := mem.SubmitResult(&entries[i]); err != nil {
			return "", err
		}
	}
	return mem.Export()
}

func cmdBackups(args []string) error {
	fs, configDir := newFlagSet("backups")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup("backups", fs, *configDir, false)
	if err != nil {
		return err
	}
	defer a.close()

	paths, err := database.ListDumps(a.dataDir())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("no backups in", a.dataDir())
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
