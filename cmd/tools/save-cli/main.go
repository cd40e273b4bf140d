package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/annel0/factory-world/internal/logic"
	"github.com/annel0/factory-world/internal/storage"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/proto"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		command    = flag.String("cmd", "list", "Command: list, latest, info")
		dataDir    = flag.String("data", "data/world", "World data directory")
		indexPath  = flag.String("index", "", "Save index path (default: <data>/saves.db)")
		prototypes = flag.String("prototypes", "data/prototypes.yaml", "Prototype definitions for info")
		worldID    = flag.String("world", "", "World ID filter")
		limit      = flag.Int("limit", 20, "Maximum number of saves")
	)
	flag.Parse()

	if *indexPath == "" {
		*indexPath = filepath.Join(*dataDir, "saves.db")
	}

	switch *command {
	case "list":
		if err := listSaves(*indexPath, *worldID, *limit); err != nil {
			log.Fatalf("❌ List failed: %v", err)
		}

	case "latest":
		if err := listSaves(*indexPath, *worldID, 1); err != nil {
			log.Fatalf("❌ Latest failed: %v", err)
		}

	case "info":
		if err := showInfo(*dataDir, *prototypes); err != nil {
			log.Fatalf("❌ Info failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: list, latest, info")
		os.Exit(1)
	}
}

// listSaves выводит журнал сохранений
func listSaves(indexPath, worldID string, limit int) error {
	idx, err := storage.OpenSaveIndex(indexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	saves, err := idx.List(context.Background(), worldID, limit)
	if err != nil {
		return err
	}
	if len(saves) == 0 {
		fmt.Println("📭 No saves")
		return nil
	}

	fmt.Printf("💾 Saves (%d)\n", len(saves))
	for _, s := range saves {
		fmt.Printf("#%-5d %s  world=%s  tick=%-8d chunks=%-4d %8d bytes  %v\n",
			s.ID, s.SavedAt.UTC().Format(timeFormat), s.WorldID, s.Tick, s.Chunks, s.Bytes,
			s.Duration.Round(time.Millisecond))
	}
	return nil
}

// showInfo загружает сохранённый мир и выводит сводку по нему
func showInfo(dataDir, prototypes string) error {
	reg, err := proto.LoadFile(prototypes)
	if err != nil {
		return err
	}

	ws, err := storage.NewWorldStorage(dataDir)
	if err != nil {
		return err
	}
	defer ws.Close()

	w := world.NewWorld()
	manager := logic.NewManager(w, reg)
	meta, err := ws.LoadWorld(w, reg, manager.ResolveDeferral)
	if err != nil {
		return err
	}

	fmt.Printf("🌍 World %s\n", meta.ID)
	fmt.Printf("   Saved:     %s\n", meta.SavedAt.UTC().Format(timeFormat))
	fmt.Printf("   Tick:      %d\n", meta.GameTick)
	fmt.Printf("   Chunks:    %d\n", w.ChunkCount())
	fmt.Printf("   Deferrals: %d pending\n", w.DeferralTimer.Pending())

	counts := countEntities(w)
	if len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\n📊 Entities")
	for _, name := range names {
		fmt.Printf("   %-24s %d\n", name, counts[name])
	}
	return nil
}

// countEntities считает постройки по прототипам. Многотайловые постройки
// учитываются один раз, по левому верхнему тайлу.
func countEntities(w *world.World) map[string]int {
	counts := make(map[string]int)
	for _, c := range w.ChunkCoords() {
		chunk := w.GetChunk(c)
		for i := 0; i < world.ChunkArea; i++ {
			l := chunk.TileAt(i).Layer(world.LayerEntity)
			if l.Empty() || (l.IsPartOfFootprint() && !l.IsTopLeftOfFootprint()) {
				continue
			}
			counts[l.Prototype().Category().String()+"/"+l.Prototype().Name()]++
		}
	}
	return counts
}
