// vascribe-term is the terminal front end: it reads utterances line by line
// from stdin and drives a dictation session directly, with no bus or audio
// capture in between. Useful over SSH and for exercising macro templates.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vascribe-labs/vascribe-core/internal/backend"
	"github.com/vascribe-labs/vascribe-core/internal/command"
	"github.com/vascribe-labs/vascribe-core/internal/config"
	"github.com/vascribe-labs/vascribe-core/internal/dictation"
	"github.com/vascribe-labs/vascribe-core/internal/macros"
	"github.com/vascribe-labs/vascribe-core/internal/narrative"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "vascribe.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(configPath)
	if err != nil {
		// A missing config file is fine for terminal use; defaults apply.
		cfg = config.Default()
	}

	library, err := macros.Load(
		cfg.Dictation.MacrosPath,
		cfg.Dictation.HotwordsPath,
		cfg.Dictation.FieldMappingsPath,
		logger,
	)
	if err != nil {
		logger.Error("failed to load dictation vocabulary", slog.String("error", err.Error()))
		os.Exit(1)
	}

	parser := command.NewParser(cfg.Dictation.Vessels, library.Fields)
	buffer := narrative.New(library.Macros)
	session := dictation.NewSession("", parser, buffer, logger)

	ctx := context.Background()
	backendClient := backend.NewClient(cfg.Backend, logger)
	if cfg.Backend.Enabled {
		if err := backendClient.Connect(ctx); err == nil {
			session.SetSaver(dictation.SaverFunc(func(ctx context.Context, narrative, status string) error {
				return backendClient.SaveProcedure(narrative, status)
			}))
		}
	}
	defer backendClient.Close()

	fmt.Printf("vascribe terminal, session %s\n", session.ID())
	fmt.Println("type an utterance and press enter; ctrl-d to quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		outcome := session.Process(ctx, text)
		printOutcome(outcome)
	}

	fmt.Println()
	fmt.Println("final narrative:")
	fmt.Println(session.Narrative())
}

func printOutcome(outcome dictation.Outcome) {
	switch outcome.Status {
	case dictation.StatusNarration:
		fmt.Println("  added to narrative")
	case dictation.StatusMacroNotFound:
		fmt.Printf("  macro not found: %s\n", outcome.Command.Macro)
	case dictation.StatusFieldNotPresent:
		fmt.Println("  field not present in narrative")
	case dictation.StatusSaved:
		fmt.Println("  procedure saved")
	case dictation.StatusSaveFailed:
		fmt.Println("  save failed (backend offline?)")
	default:
		fmt.Printf("  %s applied\n", outcome.Command.Kind)
	}

	if outcome.Command.Kind == command.KindShowFields {
		if len(outcome.Remaining) == 0 {
			fmt.Println("  all fields filled")
			return
		}
		fmt.Printf("  remaining fields (%d):\n", len(outcome.Remaining))
		limit := len(outcome.Remaining)
		if limit > 10 {
			limit = 10
		}
		for _, field := range outcome.Remaining[:limit] {
			fmt.Printf("    - %s\n", field)
		}
		if extra := len(outcome.Remaining) - limit; extra > 0 {
			fmt.Printf("    ... and %d more\n", extra)
		}
	}
}
