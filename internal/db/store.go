package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/david/keyword-scout/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Research runs

func (s *Store) CreateRun(ctx context.Context, run *models.ResearchRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO research_runs (id, profile_id, site_domain, competitors, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.ProfileID, run.SiteDomain, run.Competitors, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert run failed: %w", err)
	}
	return nil
}

func (s *Store) CompleteRun(ctx context.Context, runID uuid.UUID, clustersFound, gapsFound int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE research_runs
		SET status = 'completed', clusters_found = $2, gaps_found = $3, completed_at = NOW()
		WHERE id = $1
	`, runID, clustersFound, gapsFound)
	return err
}

// DegradeRun closes a run whose gap analysis succeeded but whose clustering
// did not. The cause is kept so the outage is visible next to the gap counts.
func (s *Store) DegradeRun(ctx context.Context, runID uuid.UUID, cause string, gapsFound int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE research_runs
		SET status = 'degraded', error = $2, gaps_found = $3, completed_at = NOW()
		WHERE id = $1
	`, runID, cause, gapsFound)
	return err
}

func (s *Store) FailRun(ctx context.Context, runID uuid.UUID, cause string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE research_runs
		SET status = 'failed', error = $2, completed_at = NOW()
		WHERE id = $1
	`, runID, cause)
	return err
}

func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*models.ResearchRun, error) {
	var run models.ResearchRun
	var errMsg *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, profile_id, site_domain, competitors, status, error,
		       clusters_found, gaps_found, started_at, completed_at
		FROM research_runs WHERE id = $1
	`, runID).Scan(
		&run.ID, &run.ProfileID, &run.SiteDomain, &run.Competitors, &run.Status, &errMsg,
		&run.ClustersFound, &run.GapsFound, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.ResearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, profile_id, site_domain, competitors, status, error,
		       clusters_found, gaps_found, started_at, completed_at
		FROM research_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ResearchRun
	for rows.Next() {
		var run models.ResearchRun
		var errMsg *string
		if err := rows.Scan(
			&run.ID, &run.ProfileID, &run.SiteDomain, &run.Competitors, &run.Status, &errMsg,
			&run.ClustersFound, &run.GapsFound, &run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, err
		}
		if errMsg != nil {
			run.Error = *errMsg
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Result persistence. The core returns plain value objects; storing them is
// entirely this layer's concern.

func (s *Store) SaveResult(ctx context.Context, runID uuid.UUID, result *models.KeywordResearchResult, labelEmbeddings map[string][]float32) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, cluster := range result.Clusters {
		membersJSON, err := json.Marshal(cluster.Members)
		if err != nil {
			return fmt.Errorf("marshal members failed: %w", err)
		}

		var embedding interface{}
		if vec, ok := labelEmbeddings[cluster.Label]; ok && len(vec) > 0 {
			embedding = pgvector.NewVector(vec)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO keyword_clusters (
				run_id, label, intent, members, total_volume, avg_difficulty,
				recommended_content_type, opportunity_score, label_embedding
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, runID, cluster.Label, string(cluster.Intent), membersJSON, cluster.TotalVolume,
			cluster.AvgDifficulty, string(cluster.RecommendedContentType), cluster.OpportunityScore, embedding)
		if err != nil {
			return fmt.Errorf("insert cluster failed: %w", err)
		}
	}

	for _, gap := range result.Gaps {
		_, err = tx.Exec(ctx, `
			INSERT INTO keyword_gaps (
				run_id, keyword, language, country, search_volume, difficulty,
				intent, competitor_count, competitors, priority_score
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (run_id, keyword, language, country) DO UPDATE SET
				search_volume = EXCLUDED.search_volume,
				difficulty = EXCLUDED.difficulty,
				intent = EXCLUDED.intent,
				competitor_count = EXCLUDED.competitor_count,
				competitors = EXCLUDED.competitors,
				priority_score = EXCLUDED.priority_score
		`, runID, gap.Keyword.Text, gap.Keyword.Language, gap.Keyword.Country, gap.SearchVolume,
			gap.Difficulty, string(gap.Intent), gap.CompetitorCount, gap.Competitors, gap.PriorityScore)
		if err != nil {
			return fmt.Errorf("insert gap failed: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) ListClusters(ctx context.Context, runID uuid.UUID) ([]models.KeywordCluster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT label, intent, members, total_volume, avg_difficulty,
		       recommended_content_type, opportunity_score
		FROM keyword_clusters WHERE run_id = $1
		ORDER BY opportunity_score DESC, total_volume DESC, label ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []models.KeywordCluster
	for rows.Next() {
		var c models.KeywordCluster
		var intent, contentType string
		var membersRaw []byte
		if err := rows.Scan(&c.Label, &intent, &membersRaw, &c.TotalVolume, &c.AvgDifficulty, &contentType, &c.OpportunityScore); err != nil {
			return nil, err
		}
		c.Intent = models.Intent(intent)
		c.RecommendedContentType = models.ContentType(contentType)
		if err := json.Unmarshal(membersRaw, &c.Members); err != nil {
			return nil, fmt.Errorf("unmarshal members failed: %w", err)
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

func (s *Store) ListGaps(ctx context.Context, runID uuid.UUID, limit int) ([]models.KeywordGap, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT keyword, language, country, search_volume, difficulty, intent,
		       competitor_count, competitors, priority_score
		FROM keyword_gaps WHERE run_id = $1
		ORDER BY priority_score DESC, search_volume DESC, keyword ASC
		LIMIT $2
	`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gaps []models.KeywordGap
	for rows.Next() {
		var g models.KeywordGap
		var intent string
		if err := rows.Scan(&g.Keyword.Text, &g.Keyword.Language, &g.Keyword.Country, &g.SearchVolume,
			&g.Difficulty, &intent, &g.CompetitorCount, &g.Competitors, &g.PriorityScore); err != nil {
			return nil, err
		}
		g.Intent = models.Intent(intent)
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

// SimilarClusters finds stored clusters whose label embedding is closest to
// the query vector. Used to surface earlier research on related topics.
func (s *Store) SimilarClusters(ctx context.Context, embedding []float32, limit int) ([]models.KeywordCluster, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT label, intent, members, total_volume, avg_difficulty,
		       recommended_content_type, opportunity_score
		FROM keyword_clusters
		WHERE label_embedding IS NOT NULL
		ORDER BY label_embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []models.KeywordCluster
	for rows.Next() {
		var c models.KeywordCluster
		var intent, contentType string
		var membersRaw []byte
		if err := rows.Scan(&c.Label, &intent, &membersRaw, &c.TotalVolume, &c.AvgDifficulty, &contentType, &c.OpportunityScore); err != nil {
			return nil, err
		}
		c.Intent = models.Intent(intent)
		c.RecommendedContentType = models.ContentType(contentType)
		if err := json.Unmarshal(membersRaw, &c.Members); err != nil {
			return nil, fmt.Errorf("unmarshal members failed: %w", err)
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}
