package domain

// Repository is the GitHub repository a pipeline run deploys.
// Owner and Name are empty when the URL could not be parsed.
type Repository struct {
	Owner     string
	Name      string
	RemoteURL string
}

// Valid reports whether both owner and name are known.
func (r Repository) Valid() bool {
	return r.Owner != "" && r.Name != ""
}
