package crawler

import (
	"net/url"
	"strconv"
)

// Query describes one crawl request: a keyword/region pair plus optional
// filters, and the number of result pages to pull. Immutable once built;
// owned by the caller for the duration of one Fetch.
type Query struct {
	Keyword    string
	Area       string
	Pages      int
	JobCat     string
	SalaryMin  int
	SalaryMax  int
	Experience string
	RemoteWork bool
}

// params builds the upstream search parameters for one page. The fixed
// values mirror the 104 search contract: full-time only, keyword search,
// newest first.
func (q Query) params(page int) url.Values {
	v := url.Values{}
	v.Set("ro", "0")
	v.Set("kwop", "7")
	v.Set("keyword", q.Keyword)
	v.Set("expansionType", "area,spec,com,job,wf,wktm")
	v.Set("order", "15")
	v.Set("page", strconv.Itoa(page))
	v.Set("mode", "s")
	v.Set("jobsource", "2018indexpoc")
	v.Set("langFlag", "0")
	v.Set("langStatus", "0")
	v.Set("recommendJob", "1")
	v.Set("hotJob", "1")

	if q.Area != "" {
		v.Set("area", q.Area)
	}
	if q.JobCat != "" {
		v.Set("jobcat", q.JobCat)
	}
	if q.SalaryMin > 0 {
		v.Set("s_c", strconv.Itoa(q.SalaryMin))
	}
	if q.SalaryMax > 0 {
		v.Set("s_d", strconv.Itoa(q.SalaryMax))
	}
	if q.Experience != "" {
		v.Set("exp", q.Experience)
	}
	if q.RemoteWork {
		v.Set("remoteWork", "1")
	}
	return v
}
