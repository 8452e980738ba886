package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Smoke test for a running triage server. Posts a set of known messages
// to /v1/analyze-text and checks the verdict lines. Point it at an
// instance with TRIAGE_URL (default http://localhost:8080).

type scenario struct {
	name         string
	payload      map[string]interface{}
	wantLine     string
	wantCategory string
}

func main() {
	baseURL := os.Getenv("TRIAGE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	log.Printf("Running smoke test against %s", baseURL)
	waitForHealth(baseURL)

	scenarios := []scenario{
		{
			name:     "benign english",
			payload:  map[string]interface{}{"text": "Lunch at noon works for me."},
			wantLine: "Classification: No suspicious activity detected",
		},
		{
			name:     "benign french",
			payload:  map[string]interface{}{"text": "le client a demandé une transaction urgente"},
			wantLine: "Classification: No suspicious activity detected",
		},
		{
			name: "structuring",
			payload: map[string]interface{}{
				"text": "Split the deposit into three different accounts of $9,800 each. Don't mention this to compliance.",
			},
			wantLine:     "Classification: Suspicious activity detected",
			wantCategory: "structuring-evasion",
		},
		{
			name: "translated bribery",
			payload: map[string]interface{}{
				"text": "si aprueba el préstamo hoy, le pagaré el diez por ciento en efectivo",
			},
			wantLine:     "Classification: Suspicious activity detected",
			wantCategory: "bribery-corruption",
		},
		{
			name: "thread",
			payload: map[string]interface{}{
				"thread": []string{
					"Can you handle it?",
					"I'll wire the funds through two separate accounts, don't mention it.",
				},
			},
			wantLine:     "Classification: Suspicious activity detected",
			wantCategory: "structuring-evasion",
		},
	}

	failed := 0
	for _, sc := range scenarios {
		if err := run(baseURL, sc); err != nil {
			log.Printf("FAIL: %s: %v", sc.name, err)
			failed++
		} else {
			log.Printf("PASS: %s", sc.name)
		}
	}

	if failed > 0 {
		log.Fatalf("%d of %d scenarios failed", failed, len(scenarios))
	}
	log.Printf("All %d scenarios passed", len(scenarios))
}

func run(baseURL string, sc scenario) error {
	body, err := json.Marshal(sc.payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(baseURL+"/v1/analyze-text", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, out)
	}

	text := string(out)
	if !strings.Contains(text, sc.wantLine) {
		return fmt.Errorf("verdict missing %q:\n%s", sc.wantLine, text)
	}
	if sc.wantCategory != "" && !strings.Contains(text, "Category: "+sc.wantCategory) {
		return fmt.Errorf("verdict missing category %q:\n%s", sc.wantCategory, text)
	}
	if len(strings.Split(strings.TrimRight(text, "\n"), "\n")) != 3 {
		return fmt.Errorf("verdict is not three lines:\n%s", text)
	}
	return nil
}

func waitForHealth(baseURL string) {
	for i := 0; i < 10; i++ {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatalf("server at %s did not become healthy", baseURL)
}
