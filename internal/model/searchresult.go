package model

import "time"

// ResultStatus records whether a registry search produced rows.
type ResultStatus string

const (
	ResultsFound   ResultStatus = "results_found"
	NoResultsFound ResultStatus = "no_results_found"
)

// SearchResult is one row gathered from a state registry search, belonging to
// exactly one states-dataset. Multiple results may exist for the same
// (search_name, search_state); all are retained.
type SearchResult struct {
	ID              string       `json:"id"`
	DatasetID       string       `json:"dataset_id"`
	SearchName      string       `json:"search_name"`
	SearchState     string       `json:"search_state"`
	LicenseNumber   *string      `json:"license_number,omitempty"`
	LicenseStatus   string       `json:"license_status,omitempty"`
	Address         string       `json:"address,omitempty"`
	City            string       `json:"city,omitempty"`
	State           string       `json:"state,omitempty"`
	Zip             string       `json:"zip,omitempty"`
	IssueDate       string       `json:"issue_date,omitempty"`
	ExpirationDate  string       `json:"expiration_date,omitempty"`
	ResultStatus    ResultStatus `json:"result_status"`
	SearchTimestamp time.Time    `json:"search_timestamp"`
}

// CandidateAddress returns the result's reported address split into the two
// parts the scorer compares independently.
func (r *SearchResult) CandidateAddress() AddressParts {
	return AddressParts{
		Street: r.Address,
		City:   r.City,
		State:  r.State,
		Zip:    r.Zip,
	}
}
