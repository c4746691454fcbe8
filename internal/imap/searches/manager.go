package searches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aaronromeo.com/mailsift/pkg/predicate"
	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

type ServerSearcher interface {
	SearchUIDs(ctx context.Context, criteria *imap.SearchCriteria) ([]imap.UID, error)
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
}

type IMAPSearchManager struct {
	provider func() *giimapclient.Client
}

func New(provider ClientProvider) *IMAPSearchManager {
	return &IMAPSearchManager{provider: provider.IMAPClient}
}

// SearchUIDs runs criteria against the selected mailbox.
func (m *IMAPSearchManager) SearchUIDs(ctx context.Context, criteria *imap.SearchCriteria) ([]imap.UID, error) {
	if m.provider == nil || m.provider() == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if criteria == nil {
		criteria = BaseCriteria()
	}

	data, err := m.provider().UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data.AllUIDs(), nil
}

// BaseCriteria matches every message not flagged for deletion.
func BaseCriteria() *imap.SearchCriteria {
	return &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagDeleted}}
}

// Supported reports whether cmp can be evaluated by IMAP SEARCH.
func Supported(cmp predicate.Comparison) bool {
	switch cmp.Property {
	case predicate.Subject, predicate.FromEmail, predicate.FromName:
		_, ok := cmp.Value.(string)
		return ok && cmp.Op == predicate.Like
	case predicate.DateReceived:
		_, ok := cmp.Value.(time.Time)
		return ok && (cmp.Op == predicate.GreaterOrEqual || cmp.Op == predicate.Less)
	}
	return false
}

// BuildSearchCriteria translates the pushed down part of a predicate. Every
// comparison in p must satisfy Supported.
func BuildSearchCriteria(p predicate.Predicate) (*imap.SearchCriteria, error) {
	criteria := BaseCriteria()

	for _, cond := range p.Conditions {
		alternatives := make([]imap.SearchCriteria, 0, len(cond.AnyOf))
		for _, cmp := range cond.AnyOf {
			c, err := comparisonCriteria(cmp)
			if err != nil {
				return nil, err
			}
			alternatives = append(alternatives, c)
		}
		if combined := combineOr(alternatives); combined != nil {
			criteria.And(combined)
		}
	}

	return criteria, nil
}

func comparisonCriteria(cmp predicate.Comparison) (imap.SearchCriteria, error) {
	if !Supported(cmp) {
		return imap.SearchCriteria{}, fmt.Errorf("comparison %s cannot be searched on the server", cmp)
	}

	switch cmp.Property {
	case predicate.Subject:
		return headerCriteria("Subject", cmp.Value.(string)), nil
	case predicate.FromName:
		return headerCriteria("From", cmp.Value.(string)), nil
	case predicate.FromEmail:
		value := cmp.Value.(string)
		return imap.SearchCriteria{
			Or: [][2]imap.SearchCriteria{{
				headerCriteria("From", value),
				headerCriteria("Sender", value),
			}},
		}, nil
	}

	bound := cmp.Value.(time.Time)
	if cmp.Op == predicate.GreaterOrEqual {
		return imap.SearchCriteria{Since: bound}, nil
	}
	return imap.SearchCriteria{Before: bound}, nil
}

func headerCriteria(key, value string) imap.SearchCriteria {
	return imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{
			Key:   key,
			Value: strings.TrimSpace(value),
		}},
	}
}

func combineOr(criteria []imap.SearchCriteria) *imap.SearchCriteria {
	if len(criteria) == 0 {
		return nil
	}
	combined := criteria[0]
	for i := 1; i < len(criteria); i++ {
		combined = imap.SearchCriteria{
			Or: [][2]imap.SearchCriteria{{combined, criteria[i]}},
		}
	}
	return &combined
}
