package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/loanguard/loanguard/internal/models"
)

// Neo4jStore persists loan profiles in a Neo4j graph as
// (:Loan)-[:HAS_REQUIREMENT]->(:Requirement). Deadline and threshold
// structures are stored as JSON properties; the graph shape carries the
// loan-to-requirement relationship, not the rule internals.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, uri, username, password, database string, logger *slog.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}
	logger.Info("connected to neo4j", "uri", uri, "database", database)
	return &Neo4jStore{driver: driver, database: database, logger: logger}, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// Put replaces the loan node and all of its requirements in one transaction.
func (s *Neo4jStore) Put(ctx context.Context, profile *models.LoanProfile) error {
	if profile == nil || profile.LoanID == "" {
		return fmt.Errorf("store: profile must have a loan ID")
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	reqs := make([]map[string]any, 0, len(profile.Requirements))
	for i := range profile.Requirements {
		props, err := requirementProps(profile.Requirements[i])
		if err != nil {
			return err
		}
		reqs = append(reqs, props)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (l:Loan {id: $id})
			SET l.name = $name,
			    l.property_name = $property_name,
			    l.borrower_name = $borrower_name,
			    l.lender_name = $lender_name,
			    l.original_loan_amount = $original_loan_amount,
			    l.origination_date = $origination_date,
			    l.maturity_date = $maturity_date,
			    l.source_document = $source_document,
			    l.extracted_at = $extracted_at,
			    l.incomplete = $incomplete
			WITH l
			OPTIONAL MATCH (l)-[:HAS_REQUIREMENT]->(old:Requirement)
			DETACH DELETE old
		`, map[string]any{
			"id":                   profile.LoanID,
			"name":                 profile.LoanName,
			"property_name":        profile.PropertyName,
			"borrower_name":        profile.BorrowerName,
			"lender_name":          profile.LenderName,
			"original_loan_amount": profile.OriginalLoanAmount,
			"origination_date":     profile.OriginationDate,
			"maturity_date":        profile.MaturityDate,
			"source_document":      profile.SourceDocument,
			"extracted_at":         profile.ExtractedAt.Format(time.RFC3339),
			"incomplete":           profile.Incomplete,
		})
		if err != nil {
			return nil, err
		}

		_, err = tx.Run(ctx, `
			MATCH (l:Loan {id: $loan_id})
			UNWIND $reqs AS req
			CREATE (r:Requirement)
			SET r = req
			CREATE (l)-[:HAS_REQUIREMENT]->(r)
		`, map[string]any{
			"loan_id": profile.LoanID,
			"reqs":    reqs,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j: put loan %s: %w", profile.LoanID, err)
	}
	return nil
}

// Get retrieves a profile and its requirements by loan ID.
func (s *Neo4jStore) Get(ctx context.Context, loanID string) (*models.LoanProfile, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return s.readProfile(ctx, tx, loanID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.LoanProfile), nil
}

// List returns every stored profile ordered by loan ID.
func (s *Neo4jStore) List(ctx context.Context) ([]*models.LoanProfile, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (l:Loan) RETURN l.id AS id ORDER BY id`, nil)
		if err != nil {
			return nil, err
		}
		var ids []string
		for res.Next(ctx) {
			if id, ok := res.Record().Get("id"); ok {
				ids = append(ids, id.(string))
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		profiles := make([]*models.LoanProfile, 0, len(ids))
		for _, id := range ids {
			p, err := s.readProfile(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			profiles = append(profiles, p)
		}
		return profiles, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: list loans: %w", err)
	}
	return result.([]*models.LoanProfile), nil
}

// Delete removes the loan node and its requirements.
func (s *Neo4jStore) Delete(ctx context.Context, loanID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (l:Loan {id: $id})
			OPTIONAL MATCH (l)-[:HAS_REQUIREMENT]->(r:Requirement)
			DETACH DELETE l, r
			RETURN count(l) AS deleted
		`, map[string]any{"id": loanID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		deleted, _ := rec.Get("deleted")
		if deleted.(int64) == 0 {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		return nil, nil
	})
	return err
}

// UpdateStatus sets one requirement's compliance status.
func (s *Neo4jStore) UpdateStatus(ctx context.Context, loanID, reqID string, status models.Status, notes string) (*models.Requirement, error) {
	if !status.IsValid() {
		return nil, &models.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", status)}
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (:Loan {id: $loan_id})-[:HAS_REQUIREMENT]->(r:Requirement {id: $req_id})
			SET r.status = $status, r.notes = $notes, r.last_checked = $last_checked
			RETURN r
		`, map[string]any{
			"loan_id":      loanID,
			"req_id":       reqID,
			"status":       string(status),
			"notes":        notes,
			"last_checked": time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: requirement %s in loan %s", ErrNotFound, reqID, loanID)
		}
		node, _ := rec.Get("r")
		return requirementFromProps(node.(neo4j.Node).Props)
	})
	if err != nil {
		return nil, err
	}
	req := result.(models.Requirement)
	return &req, nil
}

// Close shuts down the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) readProfile(ctx context.Context, tx neo4j.ManagedTransaction, loanID string) (*models.LoanProfile, error) {
	res, err := tx.Run(ctx, `
		MATCH (l:Loan {id: $id})
		OPTIONAL MATCH (l)-[:HAS_REQUIREMENT]->(r:Requirement)
		RETURN l, r
		ORDER BY r.id
	`, map[string]any{"id": loanID})
	if err != nil {
		return nil, err
	}

	var profile *models.LoanProfile
	for res.Next(ctx) {
		rec := res.Record()
		if profile == nil {
			lval, _ := rec.Get("l")
			p, err := profileFromProps(lval.(neo4j.Node).Props)
			if err != nil {
				return nil, err
			}
			profile = p
		}
		rval, ok := rec.Get("r")
		if !ok || rval == nil {
			continue
		}
		req, err := requirementFromProps(rval.(neo4j.Node).Props)
		if err != nil {
			return nil, err
		}
		profile.Requirements = append(profile.Requirements, req)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
	}
	return profile, nil
}

func requirementProps(r models.Requirement) (map[string]any, error) {
	props := map[string]any{
		"id":                     r.ID,
		"title":                  r.Title,
		"category":               string(r.Category),
		"description":            r.Description,
		"plain_language_summary": r.PlainLanguageSummary,
		"source_text":            r.SourceText,
		"document_ref":           r.DocumentRef,
		"severity":               string(r.Severity),
		"cure_period_days":       int64(r.CurePeriodDays),
		"status":                 string(r.Status),
		"notes":                  r.Notes,
	}
	if r.Deadline != nil {
		b, err := json.Marshal(r.Deadline)
		if err != nil {
			return nil, fmt.Errorf("neo4j: encode deadline for %s: %w", r.ID, err)
		}
		props["deadline_json"] = string(b)
	}
	if r.Threshold != nil {
		b, err := json.Marshal(r.Threshold)
		if err != nil {
			return nil, fmt.Errorf("neo4j: encode threshold for %s: %w", r.ID, err)
		}
		props["threshold_json"] = string(b)
	}
	if r.LastChecked != nil {
		props["last_checked"] = r.LastChecked.Format(time.RFC3339)
	}
	return props, nil
}

func requirementFromProps(props map[string]any) (models.Requirement, error) {
	r := models.Requirement{
		ID:                   str(props, "id"),
		Title:                str(props, "title"),
		Category:             models.Category(str(props, "category")),
		Description:          str(props, "description"),
		PlainLanguageSummary: str(props, "plain_language_summary"),
		SourceText:           str(props, "source_text"),
		DocumentRef:          str(props, "document_ref"),
		Severity:             models.Severity(str(props, "severity")),
		Status:               models.Status(str(props, "status")),
		Notes:                str(props, "notes"),
	}
	if v, ok := props["cure_period_days"].(int64); ok {
		r.CurePeriodDays = int(v)
	}
	if raw := str(props, "deadline_json"); raw != "" {
		var d models.Deadline
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return r, fmt.Errorf("neo4j: decode deadline for %s: %w", r.ID, err)
		}
		r.Deadline = &d
	}
	if raw := str(props, "threshold_json"); raw != "" {
		var t models.Threshold
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return r, fmt.Errorf("neo4j: decode threshold for %s: %w", r.ID, err)
		}
		r.Threshold = &t
	}
	if raw := str(props, "last_checked"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			r.LastChecked = &t
		}
	}
	return r, nil
}

func profileFromProps(props map[string]any) (*models.LoanProfile, error) {
	p := &models.LoanProfile{
		LoanID:          str(props, "id"),
		LoanName:        str(props, "name"),
		PropertyName:    str(props, "property_name"),
		BorrowerName:    str(props, "borrower_name"),
		LenderName:      str(props, "lender_name"),
		OriginationDate: str(props, "origination_date"),
		MaturityDate:    str(props, "maturity_date"),
		SourceDocument:  str(props, "source_document"),
	}
	if v, ok := props["original_loan_amount"].(float64); ok {
		p.OriginalLoanAmount = v
	}
	if v, ok := props["incomplete"].(bool); ok {
		p.Incomplete = v
	}
	if raw := str(props, "extracted_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			p.ExtractedAt = t
		}
	}
	return p, nil
}

func str(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
