package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/store"
)

// BuildJobQuery turns listing query parameters into a store query. All
// predicates are ANDed; asc fields come first in the order given, then desc.
func BuildJobQuery(params url.Values) (store.JobQuery, error) {
	var q store.JobQuery

	q.TitleContains = strings.TrimSpace(params.Get("q"))

	for _, t := range params["jobType"] {
		if t = strings.TrimSpace(t); t != "" {
			q.JobTypes = append(q.JobTypes, t)
		}
	}

	var err error
	if q.SalaryMin, err = optionalInt(params, "salaryMin"); err != nil {
		return q, err
	}
	if q.SalaryMax, err = optionalInt(params, "salaryMax"); err != nil {
		return q, err
	}
	if q.DurationBelow, err = optionalInt(params, "duration"); err != nil {
		return q, err
	}

	for _, dir := range []struct {
		param string
		desc  bool
	}{{"asc", false}, {"desc", true}} {
		for _, field := range params[dir.param] {
			col, ok := store.SortableColumns[strings.TrimSpace(field)]
			if !ok {
				return q, apperr.Validation(fmt.Sprintf("Cannot sort by %q", field))
			}
			q.Sort = append(q.Sort, store.SortKey{Column: col, Desc: dir.desc})
		}
	}
	return q, nil
}

// optionalInt treats an absent or empty parameter as unset.
func optionalInt(params url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("%s must be a whole number", key))
	}
	return &v, nil
}
