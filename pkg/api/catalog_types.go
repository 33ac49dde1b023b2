// Copyright 2020-2021 Couchbase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file  except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the  License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

// Catalog is returned from /v2/catalog.  The application catalog exposes
// each of its packages as a service offering.
type Catalog struct {
	Services []ServiceOffering `json:"services"`
}

// ServiceOffering must be provided by a service catalog.
type ServiceOffering struct {
	Name          string        `json:"name"`
	ID            string        `json:"id"`
	Description   string        `json:"description"`
	Tags          []string      `json:"tags,omitempty"`
	Bindable      bool          `json:"bindable"`
	Metadata      interface{}   `json:"metadata,omitempty"`
	PlanUpdatable bool          `json:"plan_updatable,omitempty"`
	Plans         []ServicePlan `json:"plans"`
}

// ServicePlan must be provided by a service offering.
type ServicePlan struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Metadata    interface{} `json:"metadata,omitempty"`
	Free        bool        `json:"free,omitempty"`
	Bindable    *bool       `json:"bindable,omitempty"`
}

// Offering looks up a service offering by ID.
func (c *Catalog) Offering(id string) (*ServiceOffering, bool) {
	for index := range c.Services {
		if c.Services[index].ID == id {
			return &c.Services[index], true
		}
	}

	return nil, false
}

// Package is an application package as listed by the application catalog API.
type Package struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	FullyQName  string   `json:"fully_qualified_name"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Enabled     bool     `json:"enabled"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags,omitempty"`
}

// PackageList is returned when listing packages.
type PackageList struct {
	Packages []Package `json:"packages"`
}

// Environment is a deployment target in the application catalog.  Service
// instances provisioned through the broker are backed by an environment.
type Environment struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// EnvironmentList is returned when listing environments.
type EnvironmentList struct {
	Environments []Environment `json:"environments"`
}
