// Package listing defines the canonical job listing record and the
// normalization from the upstream search payload.
package listing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Listing is one job posting in canonical shape. Every descriptive field
// defaults to the zero value when the upstream omits it, so downstream code
// never deals with missing keys.
type Listing struct {
	JobID      string    `json:"job_id" db:"job_id"`
	JobName    string    `json:"job_name" db:"job_name"`
	CustName   string    `json:"cust_name" db:"cust_name"`
	JobURL     string    `json:"job_url" db:"job_url"`
	JobAddr    string    `json:"job_addr_no_desc" db:"job_addr_no_desc"`
	SalaryDesc string    `json:"salary_desc" db:"salary_desc"`
	JobDetail  string    `json:"job_detail" db:"job_detail"`
	AppearDate string    `json:"appear_date" db:"appear_date"`
	JobCat     string    `json:"job_cat" db:"job_cat"`
	JobType    string    `json:"job_type" db:"job_type"`
	WorkExp    string    `json:"work_exp" db:"work_exp"`
	Edu        string    `json:"edu" db:"edu"`
	Skill      string    `json:"skill" db:"skill"`
	Benefit    string    `json:"benefit" db:"benefit"`
	RemoteWork bool      `json:"remote_work" db:"remote_work"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Raw mirrors one element of the upstream results array. The upstream is
// loosely typed: fields come and go, and scalars switch between strings,
// numbers and booleans across listings, so every field decodes through a
// tolerant wrapper.
type Raw struct {
	JobID      LooseString `json:"jobId"`
	JobName    LooseString `json:"jobName"`
	CustName   LooseString `json:"custName"`
	JobURL     LooseString `json:"jobUrl"`
	JobAddr    LooseString `json:"jobAddrNoDesc"`
	SalaryDesc LooseString `json:"salaryDesc"`
	JobDetail  LooseString `json:"jobDetail"`
	AppearDate LooseString `json:"appearDate"`
	JobCat     LooseString `json:"jobCat"`
	JobType    LooseString `json:"jobType"`
	WorkExp    LooseString `json:"workExp"`
	Edu        LooseString `json:"edu"`
	Skill      LooseString `json:"skill"`
	Benefit    LooseString `json:"benefit"`
	RemoteWork LooseBool   `json:"remoteWork"`
}

// Normalize maps a raw upstream record onto the canonical schema. It is pure
// and total: it never fails, and absent upstream fields land as empty strings
// or false. Timestamps are owned by the store, not set here.
func Normalize(r Raw) Listing {
	return Listing{
		JobID:      r.JobID.String(),
		JobName:    r.JobName.String(),
		CustName:   r.CustName.String(),
		JobURL:     r.JobURL.String(),
		JobAddr:    r.JobAddr.String(),
		SalaryDesc: r.SalaryDesc.String(),
		JobDetail:  r.JobDetail.String(),
		AppearDate: r.AppearDate.String(),
		JobCat:     r.JobCat.String(),
		JobType:    r.JobType.String(),
		WorkExp:    r.WorkExp.String(),
		Edu:        r.Edu.String(),
		Skill:      r.Skill.String(),
		Benefit:    r.Benefit.String(),
		RemoteWork: r.RemoteWork.Bool(),
	}
}

// NormalizeAll maps a batch of raw records, preserving order.
func NormalizeAll(raws []Raw) []Listing {
	out := make([]Listing, len(raws))
	for i, r := range raws {
		out[i] = Normalize(r)
	}
	return out
}

// LooseString decodes a JSON scalar of any type into its string form.
// null and absent both decode to "".
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = LooseString(v)
		return nil
	}
	// Numbers, booleans: keep the literal text.
	*s = LooseString(data)
	return nil
}

// String returns the decoded value.
func (s LooseString) String() string { return string(s) }

// LooseBool decodes the upstream's assorted truthiness encodings: absent,
// null, "", "0"/"1", numbers and real booleans.
type LooseBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *LooseBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*b = false
	case bytes.Equal(data, []byte("true")):
		*b = true
	case bytes.Equal(data, []byte("false")):
		*b = false
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*b = false
			return nil
		}
		*b = LooseBool(truthy(v))
	default:
		*b = LooseBool(truthy(string(data)))
	}
	return nil
}

// Bool returns the decoded value.
func (b LooseBool) Bool() bool { return bool(b) }

func truthy(v string) bool {
	if v == "" {
		return false
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n != 0
	}
	parsed, err := strconv.ParseBool(v)
	return err == nil && parsed
}
