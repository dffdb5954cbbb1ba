package model

// Pharmacy is one pharmacy row inside a pharmacies-dataset, with the set of
// state codes it claims licensure in. A pharmacy with no claimed licenses
// contributes no verification pairs.
type Pharmacy struct {
	ID              string   `json:"id"`
	DatasetID       string   `json:"dataset_id"`
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	Zip             string   `json:"zip"`
	ClaimedLicenses []string `json:"claimed_licenses"`
}

// ReferenceAddress returns the pharmacy's address split into the two parts
// the scorer compares independently.
func (p *Pharmacy) ReferenceAddress() AddressParts {
	return AddressParts{
		Street: p.Address,
		City:   p.City,
		State:  p.State,
		Zip:    p.Zip,
	}
}
