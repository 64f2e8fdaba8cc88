// simulate runs a game offline for many rounds against fixed seeds and
// reports the observed return-to-player alongside the declared house
// edge. Multi-step games are resolved with their worst-case idle
// action, which bounds the RTP from below.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/provablyhq/casino-engine/internal/engine"
	"github.com/provablyhq/casino-engine/internal/games"
)

func main() {
	game := flag.String("game", "dice", "game id (see -list)")
	rounds := flag.Int("rounds", 1_000_000, "number of rounds to play")
	clientSeed := flag.String("client-seed", "simulate", "client seed")
	params := flag.String("params", "", "comma-separated key=value game params")
	list := flag.Bool("list", false, "list game ids and exit")
	quiet := flag.Bool("quiet", false, "suppress the progress bar")
	flag.Parse()

	if *list {
		for _, id := range games.List() {
			g, _ := games.Get(id)
			_, multi := g.(games.MultiStep)
			kind := "single"
			if multi {
				kind = "multi-step"
			}
			fmt.Printf("%-12s %-10s edge=%.4f\n", id, kind, g.Definition().HouseEdge)
		}
		return
	}

	g, ok := games.Get(*game)
	if !ok {
		log.Fatalf("unknown game %q, try -list", *game)
	}
	p, err := parseParams(*params)
	if err != nil {
		log.Fatalf("params: %v", err)
	}
	// Keno needs a pick set; default to the first ten cells.
	if *game == "keno" {
		if p == nil {
			p = map[string]any{}
		}
		if _, ok := p["picks"]; !ok {
			picks := make([]any, 10)
			for i := range picks {
				picks[i] = float64(i)
			}
			p["picks"] = picks
		}
	}

	serverSeed, err := engine.NewServerSeed()
	if err != nil {
		log.Fatal(err)
	}

	bar := pb.StartNew(*rounds)
	if *quiet {
		bar.SetWriter(io.Discard)
	}

	multipliers := make([]float64, 0, *rounds)
	draws := 0
	for nonce := uint64(1); nonce <= uint64(*rounds); nonce++ {
		res, err := playOne(g, serverSeed, *clientSeed, nonce, p)
		if err != nil {
			log.Fatalf("nonce %d: %v", nonce, err)
		}
		multipliers = append(multipliers, res.Multiplier)
		draws += res.DrawCount
		bar.Increment()
	}
	bar.Finish()

	mean, std := stat.MeanStdDev(multipliers, nil)
	stderr := stat.StdErr(std, float64(len(multipliers)))
	declared := 1.0 - g.Definition().HouseEdge

	fmt.Printf("game=%s rounds=%d\n", *game, *rounds)
	fmt.Printf("observed RTP  %.6f ± %.6f\n", mean, 1.96*stderr)
	fmt.Printf("declared RTP  %.6f\n", declared)
	fmt.Printf("deviation     %+.6f (%.2f sigma)\n", mean-declared, sigma(mean, declared, stderr))
	fmt.Printf("stddev        %.4f\n", std)
	fmt.Printf("rng draws     %d (%.2f per round)\n", draws, float64(draws)/float64(*rounds))
}

// playOne resolves one round. Multi-step sessions are driven with the
// idle action until they terminate.
func playOne(g games.Game, serverSeed, clientSeed string, nonce uint64, params map[string]any) (games.Result, error) {
	bg := engine.NewByteGenerator(serverSeed, clientSeed, nonce, 0)
	ms, multi := g.(games.MultiStep)
	if !multi {
		return g.Play(bg, params)
	}
	sess, err := ms.Begin(bg, params)
	if err != nil {
		return games.Result{}, err
	}
	for !sess.Finished() {
		action, ap := sess.IdleAction()
		if _, err := sess.Apply(action, ap); err != nil {
			return games.Result{}, err
		}
	}
	return sess.Result(), nil
}

func sigma(mean, declared, stderr float64) float64 {
	if stderr == 0 {
		return 0
	}
	return math.Abs(mean-declared) / stderr
}

func parseParams(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]any)
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", kv)
		}
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil && !strings.ContainsAny(v, "abcdefghijklmnopqrstuvwxyz") {
			out[k] = f
			continue
		}
		out[k] = v
	}
	if os.Getenv("SIMULATE_DEBUG") != "" {
		log.Printf("params: %v", out)
	}
	return out, nil
}
