// Command docuwise is a terminal client for the gateway: it uploads a
// document and tracks its processing, asks questions, and lists recent
// uploads. It drives the same validate/transport/uploader stack the web
// view uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuwise/gateway/internal/models"
	"github.com/docuwise/gateway/internal/transport"
	"github.com/docuwise/gateway/internal/uploader"
)

func main() {
	gatewayURL := flag.String("gateway", envOr("DOCUWISE_GATEWAY", "http://localhost:3000"), "gateway base URL")
	timeout := flag.Duration("timeout", 60*time.Second, "per-request timeout")
	simulate := flag.Bool("simulate", false, "simulate processing when the backend returns no file id")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := transport.NewClient(*gatewayURL,
		transport.WithTimeout(*timeout),
		transport.WithLogger(logger),
	)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "upload":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		err = runUpload(ctx, client, logger, args[1], *simulate)
	case "ask":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		err = runAsk(ctx, client, args[1])
	case "files":
		err = runFiles(ctx, client)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: docuwise [flags] <command>

commands:
  upload <file>      upload a PDF/DOCX and track its processing
  ask "<question>"   ask a question about the uploaded documents
  files              list recent uploads

flags:`)
	flag.PrintDefaults()
}

func runUpload(ctx context.Context, client *transport.Client, logger zerolog.Logger, path string, simulate bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}

	mgr := uploader.NewManager(client, uploader.Options{
		SimulatedProcessing: simulate,
		Logger:              logger,
		OnChange: func(s models.UploadSession) {
			switch s.State {
			case models.UploadStateUploading:
				fmt.Printf("\ruploading %s... %3d%%", name, s.Progress)
			case models.UploadStateSuccess:
				if s.Processing != models.ProcessingIdle {
					fmt.Printf("\rprocessing: %-12s", s.Processing)
				}
			}
		},
	})

	if err := mgr.SetFile(models.CandidateFile{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Data:      data,
	}); err != nil {
		return err
	}

	if err := mgr.Upload(ctx); err != nil {
		return err
	}
	fmt.Println()

	sess := mgr.Snapshot()
	switch {
	case sess.State == models.UploadStateError:
		return fmt.Errorf("upload failed: %s", sess.Message)
	case sess.Processing == models.ProcessingFailed:
		return fmt.Errorf("processing failed: %s", sess.Message)
	case sess.Simulated:
		fmt.Println("done (simulated processing, backend returned no id)")
	case sess.Processing == models.ProcessingDone:
		fmt.Printf("done: %s is ready (id %s)\n", name, sess.UploadedID)
	default:
		fmt.Printf("upload complete, still %s (id %s); check back later\n", sess.Processing, sess.UploadedID)
	}
	return nil
}

func runAsk(ctx context.Context, client *transport.Client, question string) error {
	result, err := client.Query(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nsources:")
		for _, s := range result.Sources {
			if s.URL != "" {
				fmt.Printf("  - %s (%s)\n", titleOr(s.Title, s.URL), s.URL)
			} else {
				fmt.Printf("  - %s\n", titleOr(s.Title, "untitled source"))
			}
		}
	}
	return nil
}

func runFiles(ctx context.Context, client *transport.Client) error {
	items, err := client.RecentFiles(ctx, 10)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no uploads yet")
		return nil
	}

	for _, it := range items {
		status := it.Status
		if status == "" {
			status = "unknown"
		}
		fmt.Printf("%-24s  %8.2f MB  %-10s  %s\n",
			it.Filename, float64(it.Size)/(1024*1024), status, it.UploadedAt)
	}
	return nil
}

func titleOr(title, fallback string) string {
	if title != "" {
		return title
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
