// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/veriviz/pkg/types"
)

// QueryFile is the on-disk list of queries run by a batch.
//
//	audience: executive
//	queries:
//	  - topic: global EV sales
//	  - topic: coral reef bleaching
//	    audience: kids
type QueryFile struct {
	// Audience is the default for queries that name none (default general).
	Audience string  `yaml:"audience,omitempty"`
	Queries  []Query `yaml:"queries"`
}

// Query is one entry of a query file.
type Query struct {
	Topic    string `yaml:"topic"`
	Audience string `yaml:"audience,omitempty"`
}

// Request is a validated query ready to run.
type Request struct {
	Topic    string
	Audience types.Audience
}

// ReadQueryFile loads a query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// WriteQueryFile saves qf to path.
func WriteQueryFile(path string, qf *QueryFile) error {
	data, err := yaml.Marshal(qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Requests validates every query and resolves its audience. All problems
// are reported together.
func (qf *QueryFile) Requests() ([]Request, error) {
	if len(qf.Queries) == 0 {
		return nil, errors.New("query file has no queries")
	}

	fallback := types.AudienceGeneral
	if qf.Audience != "" {
		a, err := types.ParseAudience(qf.Audience)
		if err != nil {
			return nil, fmt.Errorf("default audience: %w", err)
		}
		fallback = a
	}

	var errs []error
	reqs := make([]Request, 0, len(qf.Queries))
	for i, q := range qf.Queries {
		topic := strings.TrimSpace(q.Topic)
		if topic == "" {
			errs = append(errs, fmt.Errorf("query %d: %w", i+1, ErrEmptyTopic))
			continue
		}
		audience := fallback
		if q.Audience != "" {
			a, err := types.ParseAudience(q.Audience)
			if err != nil {
				errs = append(errs, fmt.Errorf("query %d: %w", i+1, err))
				continue
			}
			audience = a
		}
		reqs = append(reqs, Request{Topic: topic, Audience: audience})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reqs, nil
}
