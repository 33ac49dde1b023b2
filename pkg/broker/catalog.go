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
	"fmt"
	"net/http"
	"sort"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/util"

	"github.com/julienschmidt/httprouter"
)

// handleListPackages lists the application catalog packages.
func (b *Broker) handleListPackages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	util.JSONResponse(w, http.StatusOK, &api.PackageList{Packages: b.options.Packages})
}

// handleReadPackage reads a single package.
func (b *Broker) handleReadPackage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	packageID := params.ByName("package_id")

	for index := range b.options.Packages {
		if b.options.Packages[index].ID == packageID {
			util.JSONResponse(w, http.StatusOK, &b.options.Packages[index])
			return
		}
	}

	util.JSONError(w, http.StatusNotFound, api.ErrorResourceNotFound, fmt.Errorf("package %s not found", packageID))
}

// handleListEnvironments lists the environments backing service instances.
func (b *Broker) handleListEnvironments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	b.lock.Lock()
	defer b.lock.Unlock()

	list := &api.EnvironmentList{
		Environments: []api.Environment{},
	}

	for _, environment := range b.environments {
		list.Environments = append(list.Environments, *environment)
	}

	sort.Slice(list.Environments, func(i, j int) bool {
		return list.Environments[i].ID < list.Environments[j].ID
	})

	util.JSONResponse(w, http.StatusOK, list)
}

// handleDeleteEnvironment deletes an environment.
func (b *Broker) handleDeleteEnvironment(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	environmentID := params.ByName("environment_id")

	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.environments[environmentID]; !ok {
		util.JSONError(w, http.StatusNotFound, api.ErrorResourceNotFound, fmt.Errorf("environment %s not found", environmentID))
		return
	}

	delete(b.environments, environmentID)

	util.HTTPResponse(w, http.StatusNoContent)
}
