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

package broker

import (
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/operation"

	"github.com/google/uuid"
)

const (
	// DefaultPlanName is the plan every package is offered with.
	DefaultPlanName = "default"
)

// Options configure a broker.
type Options struct {
	// Username and Password are the credentials clients must authenticate with.
	Username string
	Password string

	// Token is accepted by the application catalog API in place of basic
	// authentication.  If empty token authentication is disabled.
	Token string

	// Packages are the packages in the application catalog.  Each is offered
	// as a service with a single plan by the service broker API.
	Packages []api.Package
}

// DefaultPackages returns a set of packages for testing with.
func DefaultPackages() []api.Package {
	return []api.Package{
		{
			ID:          "3f1b7b5a-5d50-4c0e-8a50-0d1e6a4b2b11",
			Name:        "PostgreSQL",
			FullyQName:  "io.catalog.databases.PostgreSQL",
			Type:        "Application",
			Description: "Relational database",
			Enabled:     true,
			IsPublic:    true,
			Tags:        []string{"database", "sql"},
		},
		{
			ID:          "8c6d3f0e-2a8b-4b8e-9d0c-7f3a1e5c9b22",
			Name:        "Apache HTTP Server",
			FullyQName:  "io.catalog.apps.ApacheHttpServer",
			Type:        "Application",
			Description: "Web server",
			Enabled:     true,
			IsPublic:    true,
			Tags:        []string{"web"},
		},
	}
}

// PlanID returns the plan ID of the default plan for a package.
func PlanID(packageID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(packageID+"/"+DefaultPlanName)).String()
}

// instance is a service instance known to the broker.
type instance struct {
	serviceID string
	planID    string

	// deleted is set once a deprovision has been accepted.
	deleted bool

	// operation is the current asynchronous operation.
	operation *operation.Operation

	// deprovisions is the number of deprovision requests accepted.
	deprovisions int

	// polls is the total number of last operation requests.
	polls int
}

// binding is a service binding known to the broker.
type binding struct {
	instanceID string
	request    api.CreateServiceBindingRequest
}

// Broker is a fake service broker.  It is safe for concurrent use.
type Broker struct {
	options Options
	router  http.Handler

	lock sync.Mutex

	// catalog is generated from the package list.
	catalog *api.Catalog

	// instances are service instances keyed by ID.
	instances map[string]*instance

	// bindings are service bindings keyed by ID.
	bindings map[string]*binding

	// environments back service instances, keyed by instance ID.
	environments map[string]*api.Environment

	// provisionScript and deprovisionScript are used for new operations.
	provisionScript   []operation.Step
	deprovisionScript []operation.Step
}

// New returns a new broker.
func New(options Options) *Broker {
	if options.Packages == nil {
		options.Packages = DefaultPackages()
	}

	b := &Broker{
		options: options,
		catalog: catalogFromPackages(options.Packages),
	}

	b.router = b.newRouter()
	b.Reset()

	return b
}

// catalogFromPackages offers every enabled package as a service.
func catalogFromPackages(packages []api.Package) *api.Catalog {
	catalog := &api.Catalog{
		Services: []api.ServiceOffering{},
	}

	for _, pkg := range packages {
		if !pkg.Enabled {
			continue
		}

		catalog.Services = append(catalog.Services, api.ServiceOffering{
			Name:        pkg.FullyQName,
			ID:          pkg.ID,
			Description: pkg.Description,
			Tags:        pkg.Tags,
			Bindable:    true,
			Plans: []api.ServicePlan{
				{
					ID:          PlanID(pkg.ID),
					Name:        DefaultPlanName,
					Description: "Default plan for " + pkg.Name,
					Free:        true,
				},
			},
		})
	}

	return catalog
}

// authorized checks basic authentication credentials.
func (b *Broker) authorized(username, password string) bool {
	if b.options.Username == "" {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(b.options.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(b.options.Password)) == 1

	return userOK && passOK
}

// Reset forgets all instances, bindings and scripts.
func (b *Broker) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.instances = map[string]*instance{}
	b.bindings = map[string]*binding{}
	b.environments = map[string]*api.Environment{}
	b.provisionScript = nil
	b.deprovisionScript = nil
}

// SetProvisionScript sets the script followed by subsequent provision operations.
func (b *Broker) SetProvisionScript(steps ...operation.Step) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.provisionScript = steps
}

// SetDeprovisionScript sets the script followed by subsequent deprovision operations.
func (b *Broker) SetDeprovisionScript(steps ...operation.Step) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.deprovisionScript = steps
}

// SetInstanceScript replaces the current operation on an instance, creating
// the instance if it does not exist.
func (b *Broker) SetInstanceScript(instanceID string, steps ...operation.Step) {
	b.lock.Lock()
	defer b.lock.Unlock()

	i, ok := b.instances[instanceID]
	if !ok {
		i = &instance{}
		b.instances[instanceID] = i
	}

	i.operation = operation.New(operation.OperationKindServiceInstanceCreate, steps...)
}

// DeprovisionCount returns the number of accepted deprovision requests for an instance.
func (b *Broker) DeprovisionCount(instanceID string) int {
	b.lock.Lock()
	defer b.lock.Unlock()

	if i, ok := b.instances[instanceID]; ok {
		return i.deprovisions
	}

	return 0
}

// PollCount returns the number of last operation requests for an instance.
func (b *Broker) PollCount(instanceID string) int {
	b.lock.Lock()
	defer b.lock.Unlock()

	if i, ok := b.instances[instanceID]; ok {
		return i.polls
	}

	return 0
}

// Exists returns whether an instance exists and has not been deprovisioned.
func (b *Broker) Exists(instanceID string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	i, ok := b.instances[instanceID]

	return ok && !i.deleted
}

// copySteps makes a copy of a script so later changes don't affect existing operations.
func copySteps(steps []operation.Step) []operation.Step {
	return append([]operation.Step(nil), steps...)
}
