package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"notescan/internal"
	"notescan/internal/barcode"
	"notescan/internal/config"
	"notescan/internal/intake"
	gmailconnector "notescan/internal/intake/gmail"
	imapconnector "notescan/internal/intake/imap"
	"notescan/internal/pipeline"
	"notescan/internal/recognition"
	"notescan/internal/storage"
	"notescan/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "note:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "delivery note name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*name) == "" {
			must(fmt.Errorf("--name is required"))
		}
		id, err := db.CreateNote(*name)
		must(err)
		fmt.Printf("created note id=%d name=%s\n", id, *name)
	case "note:list":
		notes, err := db.ListNotes()
		must(err)
		for _, note := range notes {
			fmt.Printf("%d\t%s\titems=%d\tcreated=%s\n", note.ID, note.Name, note.TotalItems, note.CreatedAt)
		}
		fmt.Printf("%d notes\n", len(notes))
	case "note:delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noteID := fs.Int64("noteId", 0, "note id")
		_ = fs.Parse(os.Args[2:])
		if *noteID == 0 {
			must(fmt.Errorf("--noteId is required"))
		}
		must(db.DeleteNote(*noteID))
		fmt.Printf("deleted note id=%d\n", *noteID)
	case "scan":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noteID := fs.Int64("noteId", 0, "target note id")
		images := fs.String("images", "", "comma-separated image paths")
		mapSpec := fs.String("map", "", "mapping overrides, e.g. barcode=2,name=0")
		dryRun := fs.Bool("dry-run", false, "print extracted tables without importing")
		_ = fs.Parse(os.Args[2:])
		if *noteID == 0 || strings.TrimSpace(*images) == "" {
			must(fmt.Errorf("--noteId and --images are required"))
		}
		must(runScan(db, cfg, *noteID, splitPaths(*images), *mapSpec, *dryRun))
	case "pdf:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noteID := fs.Int64("noteId", 0, "target note id")
		file := fs.String("file", "", "pdf path")
		mapSpec := fs.String("map", "", "mapping overrides, e.g. barcode=2,name=0")
		_ = fs.Parse(os.Args[2:])
		if *noteID == 0 || strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--noteId and --file are required"))
		}
		blob, err := os.ReadFile(*file)
		must(err)
		table, err := pipeline.ExtractTableFromPDF(blob)
		must(err)
		mapping, err := pipeline.ParseMappingOverrides(pipeline.SuggestMapping(table.Headers), *mapSpec)
		must(err)
		count, err := pipeline.NewImporter(db).ImportRows(*noteID, table.Rows, mapping)
		must(err)
		fmt.Printf("pdf import done file=%s items=%d\n", *file, count)
	case "items:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noteID := fs.Int64("noteId", 0, "note id")
		_ = fs.Parse(os.Args[2:])
		if *noteID == 0 {
			must(fmt.Errorf("--noteId is required"))
		}
		items, err := db.ListItems(*noteID)
		must(err)
		for _, item := range items {
			fmt.Printf("%d\t%s\t%s\t%.2f\tx%d\t%s\n", item.ID, item.Barcode, item.Name, item.UnitPrice, item.Quantity, item.Status)
		}
		fmt.Printf("%d items\n", len(items))
	case "item:status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		itemID := fs.Int64("itemId", 0, "item id")
		statusValue := fs.String("status", "", "unchecked|correct|incorrect")
		_ = fs.Parse(os.Args[2:])
		status, ok := internal.ParseItemStatus(*statusValue)
		if *itemID == 0 || !ok {
			must(fmt.Errorf("--itemId and a valid --status are required"))
		}
		must(db.UpdateItemStatus(*itemID, status))
		fmt.Printf("item %d status=%s\n", *itemID, status)
	case "item:barcode":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		itemID := fs.Int64("itemId", 0, "item id")
		code := fs.String("barcode", "", "replacement barcode")
		_ = fs.Parse(os.Args[2:])
		if *itemID == 0 || strings.TrimSpace(*code) == "" {
			must(fmt.Errorf("--itemId and --barcode are required"))
		}
		if !barcode.Validate(*code) {
			fmt.Printf("warning: %s fails its check digit\n", *code)
		}
		must(db.UpdateItemBarcode(*itemID, *code))
		fmt.Printf("item %d barcode=%s\n", *itemID, *code)
	case "item:check":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noteID := fs.Int64("noteId", 0, "note id")
		code := fs.String("barcode", "", "scanned barcode")
		_ = fs.Parse(os.Args[2:])
		if *noteID == 0 || strings.TrimSpace(*code) == "" {
			must(fmt.Errorf("--noteId and --barcode are required"))
		}
		if !barcode.Validate(*code) {
			fmt.Printf("%s: check digit invalid\n", *code)
			return
		}
		item, err := db.FindItemByBarcode(*noteID, *code)
		must(err)
		if item == nil {
			fmt.Printf("%s: not on note %d\n", *code, *noteID)
			return
		}
		must(db.UpdateItemStatus(item.ID, internal.StatusCorrect))
		fmt.Printf("%s: %s x%d marked correct\n", item.Barcode, item.Name, item.Quantity)
	case "counts:fix":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noteID := fs.Int64("noteId", 0, "note id, 0 for all notes")
		_ = fs.Parse(os.Args[2:])
		importer := pipeline.NewImporter(db)
		if *noteID != 0 {
			total, err := importer.ReconcileCounts(*noteID)
			must(err)
			fmt.Printf("note %d totalItems=%d\n", *noteID, total)
			return
		}
		fixed, err := importer.ReconcileAllCounts()
		must(err)
		fmt.Printf("recounted %d notes\n", fixed)
	case "export:xlsx", "export:csv":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noteID := fs.Int64("noteId", 0, "note id")
		out := fs.String("out", "", "output path")
		_ = fs.Parse(os.Args[2:])
		if *noteID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--noteId and --out are required"))
		}
		items, err := db.ListItems(*noteID)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no items on note %d", *noteID))
		}
		if cmd == "export:xlsx" {
			must(pipeline.ExportItemsToXLSX(items, *out))
		} else {
			must(pipeline.ExportItemsToCSV(items, *out))
		}
		fmt.Printf("exported %d items to %s\n", len(items), *out)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := intake.NewFetchService(db, cfg.IntakeDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "watch":
		must(watcher.NewService(db, cfg).Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func runScan(db *storage.DB, cfg config.Config, noteID int64, images []string, mapSpec string, dryRun bool) error {
	scanner := pipeline.NewScanService(recognition.NewClient(cfg), func(current, total int, message string) {
		fmt.Println(message)
	})
	result := scanner.Run(context.Background(), images)

	for _, image := range result.NoData {
		fmt.Printf("no table found in %s\n", image)
	}
	for _, failure := range result.Failures {
		fmt.Printf("failed: %v\n", failure)
	}

	importer := pipeline.NewImporter(db)
	imported := 0
	for _, it := range result.Tables {
		mapping, err := pipeline.ParseMappingOverrides(pipeline.SuggestMapping(it.Table.Headers), mapSpec)
		if err != nil {
			return err
		}
		if dryRun {
			fmt.Printf("%s: %s\n", it.Image, pipeline.DescribeTable(&it.Table))
			fmt.Printf("  mapping: %s\n", pipeline.FormatMapping(mapping))
			continue
		}
		count, err := importer.ImportRows(noteID, it.Table.Rows, mapping)
		if err != nil {
			return err
		}
		imported += count
	}

	if dryRun {
		return nil
	}
	note, err := db.MustNote(noteID)
	if err != nil {
		return err
	}
	fmt.Printf("scan done images=%d imported=%d totalItems=%d\n", len(images), imported, note.TotalItems)
	return nil
}

func makeConnector(cfg config.Config, provider string) (intake.Connector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func splitPaths(value string) []string {
	parts := strings.Split(value, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths
}

func usage() {
	fmt.Println("usage: notescan <command>")
	fmt.Println("commands:")
	fmt.Println("  note:create --name=...")
	fmt.Println("  note:list")
	fmt.Println("  note:delete --noteId=1")
	fmt.Println("  scan --noteId=1 --images=a.jpg,b.jpg [--map=barcode=2,name=0] [--dry-run]")
	fmt.Println("  pdf:import --noteId=1 --file=./note.pdf [--map=...]")
	fmt.Println("  items:list --noteId=1")
	fmt.Println("  item:status --itemId=1 --status=unchecked|correct|incorrect")
	fmt.Println("  item:barcode --itemId=1 --barcode=4006381333931")
	fmt.Println("  item:check --noteId=1 --barcode=4006381333931")
	fmt.Println("  counts:fix [--noteId=1]")
	fmt.Println("  export:xlsx --noteId=1 --out=./out/note.xlsx")
	fmt.Println("  export:csv --noteId=1 --out=./out/note.csv")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
