package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/keyword-scout/internal/ai"
	"github.com/david/keyword-scout/internal/db"
	"github.com/david/keyword-scout/internal/models"
	"github.com/david/keyword-scout/internal/provider"
	"github.com/david/keyword-scout/internal/research"
)

func main() {
	profileID := flag.String("profile", "", "Research profile ID from profiles.yaml")
	similarityName := flag.String("similarity", "", "Override similarity binding: lexical, llm, embedding")
	dryRun := flag.Bool("dry", false, "Print results without persisting a run")
	flag.Parse()

	if *profileID == "" {
		log.Fatal("Please provide a profile ID using -profile flag")
	}

	registry, err := research.LoadRegistry("internal/research/config/profiles.yaml")
	if err != nil {
		log.Fatalf("Failed to load research profiles: %v", err)
	}
	profile, err := registry.Get(*profileID)
	if err != nil {
		log.Fatal(err)
	}
	if *similarityName != "" {
		profile.Similarity = *similarityName
	}

	ctx := context.Background()
	metrics := provider.NewDataForSEOClient()

	log.Printf("Fetching keywords for %s (%d competitors)...", profile.SiteDomain, len(profile.Competitor))
	siteRaw, err := metrics.KeywordsForSite(ctx, profile.SiteDomain, profile.Country, profile.Language, profile.KeywordLimit)
	if err != nil {
		log.Fatalf("Fetch failed for %s: %v", profile.SiteDomain, err)
	}

	competitorRaw := make(map[string][]models.RawKeywordInput, len(profile.Competitor))
	for _, domain := range profile.Competitor {
		raw, err := metrics.KeywordsForSite(ctx, domain, profile.Country, profile.Language, profile.KeywordLimit)
		if err != nil {
			log.Fatalf("Fetch failed for competitor %s: %v", domain, err)
		}
		competitorRaw[domain] = raw
	}

	result, err := research.RunKeywordResearch(ctx, research.ResearchRequest{
		SiteRaw:        siteRaw,
		CompetitorRaw:  competitorRaw,
		TargetClusters: profile.TargetClusters,
		MinGapVolume:   *profile.MinGapVolume,
		MaxGapResults:  profile.MaxGapResults,
	}, similarityFor(profile.Similarity))
	if err != nil {
		log.Fatalf("Research failed: %v", err)
	}

	printClusters(result.Clusters)
	printGaps(result.Gaps)

	if *dryRun {
		return
	}

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)
	runID := uuid.New()
	run := &models.ResearchRun{
		ID:          runID,
		ProfileID:   profile.ID,
		SiteDomain:  profile.SiteDomain,
		Competitors: profile.Competitor,
		Status:      "running",
		StartedAt:   time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatalf("Failed to create run: %v", err)
	}
	if err := store.SaveResult(ctx, runID, result, nil); err != nil {
		log.Fatalf("Failed to save result: %v", err)
	}
	if err := store.CompleteRun(ctx, runID, len(result.Clusters), len(result.Gaps)); err != nil {
		log.Fatalf("Failed to complete run: %v", err)
	}
	log.Printf("Run %s saved: %d clusters, %d gaps", runID, len(result.Clusters), len(result.Gaps))
}

func similarityFor(name string) research.SimilarityCapability {
	switch name {
	case "llm":
		return ai.LLMSimilarity{Client: ai.NewOllamaClient(os.Getenv("OLLAMA_HOST"), "", "")}
	case "embedding":
		return ai.EmbeddingSimilarity{Embedder: ai.NewOllamaClient(os.Getenv("OLLAMA_HOST"), "", "")}
	default:
		return research.LexicalSimilarity{}
	}
}

func printClusters(clusters []models.KeywordCluster) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Clusters")
	t.AppendHeader(table.Row{"Label", "Intent", "Content Type", "Members", "Volume", "Avg Diff", "Score"})
	for _, c := range clusters {
		diff := "-"
		if c.AvgDifficulty != nil {
			diff = fmt.Sprintf("%.1f", *c.AvgDifficulty)
		}
		t.AppendRow(table.Row{c.Label, c.Intent, c.RecommendedContentType, len(c.Members), c.TotalVolume, diff, fmt.Sprintf("%.1f", c.OpportunityScore)})
	}
	t.Render()
}

func printGaps(gaps []models.KeywordGap) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Keyword Gaps")
	t.AppendHeader(table.Row{"Keyword", "Volume", "Competitors", "Priority"})
	for _, g := range gaps {
		t.AppendRow(table.Row{g.Keyword.Text, g.SearchVolume, strings.Join(g.Competitors, ", "), fmt.Sprintf("%.0f", g.PriorityScore)})
	}
	t.Render()
}
