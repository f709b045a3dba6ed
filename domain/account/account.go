package account

import "github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"

// Account is a billing scope the engine can be pointed at: an Azure subscription or a
// GCP project.
type Account struct {
	Provider inventory.Provider
	ID       string
	Name     string
}
