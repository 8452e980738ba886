package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/halcyon-labs/comms-triage/backend/internal/classify"
	"github.com/halcyon-labs/comms-triage/backend/internal/config"
	"github.com/halcyon-labs/comms-triage/backend/internal/decision"
	"github.com/halcyon-labs/comms-triage/backend/internal/explain"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/segment"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/translate"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func main() {
	godotenv.Load()

	fmt.Println(colorCyan + colorBold + `
╔═══════════════════════════════════════════════════════════╗
║          COMMS TRIAGE - Interactive CLI                   ║
║          Paste a message to triage it                     ║
║          Type 'exit' or 'quit' to exit                    ║
╚═══════════════════════════════════════════════════════════╝` + colorReset)
	fmt.Println()

	cfg := config.Load()
	logger := log.New(os.Stderr, "[triage] ", log.LstdFlags)

	store, err := taxonomy.NewStore(cfg.Taxonomy.Directory, logger)
	if err != nil {
		fmt.Printf("%sError: Failed to load taxonomy: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	engine, err := decision.NewEngine(cfg.Decision.PolicyPath, logger)
	if err != nil {
		fmt.Printf("%sError: Failed to load flagging policy: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	var backend translate.Backend
	if cfg.Translate.PhrasebookPath != "" {
		backend, err = translate.LoadPhrasebook(cfg.Translate.PhrasebookPath)
		if err != nil {
			fmt.Printf("%sError: Failed to load phrasebook: %v%s\n", colorRed, err, colorReset)
			os.Exit(1)
		}
	} else {
		backend = translate.NewPhrasebook()
	}

	pipe := pipeline.New([]pipeline.Stage{
		segment.New(logger),
		translate.NewNormalizer(backend, logger),
		classify.New(store, engine, logger),
		explain.New(logger),
	}, cfg.Pipeline.TimeBudget, nil)

	fmt.Printf("%s[✓] Components initialized%s\n", colorGreen, colorReset)
	fmt.Printf("    Taxonomy: %s\n", store.Version())
	fmt.Printf("    Policy:   %s\n", engine.PolicyVersion())
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Printf("%s%s> %s", colorBold, colorBlue, colorReset)

		if !scanner.Scan() {
			break
		}

		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			continue
		}
		if msg == "exit" || msg == "quit" {
			fmt.Println(colorCyan + "Goodbye!" + colorReset)
			break
		}

		v, tc, err := pipe.TriageContext(context.Background(), msg)
		if err != nil {
			fmt.Printf("\n%s%s  ⚠ PROCESSING ERROR  %s\n%v\n\n", colorBold, colorRed, colorReset, err)
			continue
		}
		printVerdict(v, tc)
		fmt.Println()
	}
}

func printVerdict(v *verdict.Verdict, tc *pipeline.Context) {
	fmt.Println()

	if v.Classification == verdict.Suspicious {
		fmt.Printf("%s%s  🛑 %s  %s\n", colorBold, colorRed, v.Classification, colorReset)
	} else {
		fmt.Printf("%s%s  ✅ %s  %s\n", colorBold, colorGreen, v.Classification, colorReset)
	}
	fmt.Printf("%sCategory:%s    %s\n", colorBold, colorReset, v.Category)
	fmt.Printf("%sExplanation:%s %s\n", colorBold, colorReset, v.Explanation)
	if v.Citation != "" {
		fmt.Printf("%sCitation:%s    %s\n", colorBold, colorReset, v.Citation)
	}
	fmt.Println()

	fmt.Printf("%s┌─ Analysis ─────────────────────────────────────────%s\n", colorYellow, colorReset)
	if tc.Normalized != nil {
		fmt.Printf("│ Spans:       %d (%d translated)\n", len(tc.Normalized.Provenance), tc.Normalized.TranslatedCount())
		fmt.Printf("│ Normalized:  %s\n", truncate(tc.Normalized.Text, 60))
	}
	if tc.Candidate != nil {
		fmt.Printf("│ Candidate:   %s (strength %.2f, %d lexical, %d contextual)\n",
			tc.Candidate.Category.ID, tc.Candidate.Strength,
			len(tc.Candidate.LexicalHits), len(tc.Candidate.ContextualHits))
	}
	fmt.Printf("│ Taxonomy:    %s\n", tc.TaxonomyVersion)
	if tc.DecisionReason != "" {
		fmt.Printf("│ Reason:      %s\n", tc.DecisionReason)
	}
	fmt.Printf("%s└────────────────────────────────────────────────────%s\n", colorYellow, colorReset)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
