package bunrepo

import (
	"net/http"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/interprelab/go-offline-cache/pkg/domain"
	"github.com/uptrace/bun"
)

func withName(name string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("name = ?", name)
	}
}

func orderByName() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("name ASC")
	}
}

func httpHeader(h domain.HeaderMap) http.Header {
	if h == nil {
		return nil
	}
	return http.Header(h).Clone()
}
