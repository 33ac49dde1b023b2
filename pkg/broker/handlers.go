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
	"reflect"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/log"
	"github.com/couchbase/service-broker-tests/pkg/operation"
	"github.com/couchbase/service-broker-tests/pkg/util"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"

	"k8s.io/apimachinery/pkg/runtime"
)

// handleReadyz is a handler for readiness checks.
func (b *Broker) handleReadyz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	util.HTTPResponse(w, http.StatusOK)
}

// handleReadCatalog advertises the services we offer.
func (b *Broker) handleReadCatalog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	util.JSONResponse(w, http.StatusOK, b.catalog)
}

// validatePlan checks the service and plan are offered.
func (b *Broker) validatePlan(serviceID, planID string) error {
	service, ok := b.catalog.Offering(serviceID)
	if !ok {
		return fmt.Errorf("unable to locate service offering %s", serviceID)
	}

	for _, plan := range service.Plans {
		if plan.ID == planID {
			return nil
		}
	}

	return fmt.Errorf("unable to locate plan %s for service offering %s", planID, serviceID)
}

// handleCreateServiceInstance creates a service instance of a plan.
func (b *Broker) handleCreateServiceInstance(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := util.AsyncRequired(r); err != nil {
		util.JSONError(w, http.StatusUnprocessableEntity, api.ErrorAsyncRequired, err)
		return
	}

	instanceID := params.ByName("instance_id")

	request := &api.CreateServiceInstanceRequest{}
	if err := util.JSONRequest(r, request); err != nil {
		util.JSONError(w, http.StatusBadRequest, api.ErrorParameterError, err)
		return
	}

	if err := b.validatePlan(request.ServiceID, request.PlanID); err != nil {
		util.JSONError(w, http.StatusBadRequest, api.ErrorParameterError, err)
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if i, ok := b.instances[instanceID]; ok && !i.deleted {
		// Identical requests are idempotent, anything else conflicts.
		if i.serviceID != request.ServiceID || i.planID != request.PlanID {
			util.JSONError(w, http.StatusConflict, api.ErrorResourceConflict, fmt.Errorf("service instance %s already exists", instanceID))
			return
		}

		util.JSONResponse(w, http.StatusAccepted, &api.CreateServiceInstanceResponse{Operation: i.operation.ID})

		return
	}

	i := &instance{
		serviceID: request.ServiceID,
		planID:    request.PlanID,
		operation: operation.New(operation.OperationKindServiceInstanceCreate, copySteps(b.provisionScript)...),
	}

	if old, ok := b.instances[instanceID]; ok {
		i.deprovisions = old.deprovisions
		i.polls = old.polls
	}

	b.instances[instanceID] = i
	b.environments[instanceID] = &api.Environment{
		ID:     instanceID,
		Name:   "env-" + instanceID,
		Status: "ready",
	}

	glog.V(log.LevelDebug).Infof("created service instance %s operation %s", instanceID, i.operation.ID)

	util.JSONResponse(w, http.StatusAccepted, &api.CreateServiceInstanceResponse{Operation: i.operation.ID})
}

// handleDeleteServiceInstance deletes a service instance.
func (b *Broker) handleDeleteServiceInstance(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := util.AsyncRequired(r); err != nil {
		util.JSONError(w, http.StatusUnprocessableEntity, api.ErrorAsyncRequired, err)
		return
	}

	instanceID := params.ByName("instance_id")

	b.lock.Lock()
	defer b.lock.Unlock()

	i, ok := b.instances[instanceID]
	if !ok || i.deleted {
		util.JSONError(w, http.StatusGone, api.ErrorResourceGone, fmt.Errorf("service instance %s does not exist", instanceID))
		return
	}

	// The service and plan are hints, but must match if given.
	serviceID, serviceIDProvided, err := util.MayGetSingleParameter(r, api.QueryServiceID)
	if err != nil {
		util.JSONError(w, http.StatusBadRequest, api.ErrorQueryError, err)
		return
	}

	planID, planIDProvided, err := util.MayGetSingleParameter(r, api.QueryPlanID)
	if err != nil {
		util.JSONError(w, http.StatusBadRequest, api.ErrorQueryError, err)
		return
	}

	if serviceIDProvided && i.serviceID != "" && serviceID != i.serviceID {
		util.JSONError(w, http.StatusBadRequest, api.ErrorQueryError, fmt.Errorf("specified service ID %s does not match %s", serviceID, i.serviceID))
		return
	}

	if planIDProvided && i.planID != "" && planID != i.planID {
		util.JSONError(w, http.StatusBadRequest, api.ErrorQueryError, fmt.Errorf("specified plan ID %s does not match %s", planID, i.planID))
		return
	}

	i.deleted = true
	i.deprovisions++
	i.operation = operation.New(operation.OperationKindServiceInstanceDelete, copySteps(b.deprovisionScript)...)

	delete(b.environments, instanceID)

	for id, binding := range b.bindings {
		if binding.instanceID == instanceID {
			delete(b.bindings, id)
		}
	}

	glog.V(log.LevelDebug).Infof("deleting service instance %s operation %s", instanceID, i.operation.ID)

	util.JSONResponse(w, http.StatusAccepted, &api.DeleteServiceInstanceResponse{Operation: i.operation.ID})
}

// handleReadServiceInstanceStatus replays the next step of the instance's
// current operation.
func (b *Broker) handleReadServiceInstanceStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	instanceID := params.ByName("instance_id")

	operationID, operationIDProvided, err := util.MayGetSingleParameter(r, api.QueryOperation)
	if err != nil {
		util.JSONError(w, http.StatusBadRequest, api.ErrorQueryError, err)
		return
	}

	b.lock.Lock()

	i, ok := b.instances[instanceID]
	if !ok || i.operation == nil {
		b.lock.Unlock()
		util.RawJSONResponse(w, http.StatusNotFound, []byte(`{}`))

		return
	}

	i.polls++
	op := i.operation

	b.lock.Unlock()

	if operationIDProvided && operationID != op.ID {
		util.JSONError(w, http.StatusBadRequest, api.ErrorQueryError, fmt.Errorf("provided operation %s does not match operation %s", operationID, op.ID))
		return
	}

	step := op.Next()

	glog.V(log.LevelDebug).Infof("service instance %s operation %s poll %d: %d %s", instanceID, op.ID, op.Polls(), step.StatusCode, step.Body)

	util.RawJSONResponse(w, step.StatusCode, []byte(step.Body))
}

// handleCreateServiceBinding creates a service binding.  Bindings are synchronous.
func (b *Broker) handleCreateServiceBinding(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	instanceID := params.ByName("instance_id")
	bindingID := params.ByName("binding_id")

	request := &api.CreateServiceBindingRequest{}
	if err := util.JSONRequest(r, request); err != nil {
		util.JSONError(w, http.StatusBadRequest, api.ErrorParameterError, err)
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	i, ok := b.instances[instanceID]
	if !ok || i.deleted {
		util.JSONError(w, http.StatusNotFound, api.ErrorResourceNotFound, fmt.Errorf("service instance %s does not exist", instanceID))
		return
	}

	if request.ServiceID != i.serviceID || request.PlanID != i.planID {
		util.JSONError(w, http.StatusBadRequest, api.ErrorParameterError, fmt.Errorf("binding service and plan do not match service instance %s", instanceID))
		return
	}

	credentials := &runtime.RawExtension{
		Raw: []byte(fmt.Sprintf(`{"environment":"env-%s","binding":"%s"}`, instanceID, bindingID)),
	}

	if existing, ok := b.bindings[bindingID]; ok {
		// Identical requests get a 200, anything else conflicts.
		if existing.instanceID != instanceID || !reflect.DeepEqual(&existing.request, request) {
			util.JSONError(w, http.StatusConflict, api.ErrorResourceConflict, fmt.Errorf("service binding %s already exists", bindingID))
			return
		}

		util.JSONResponse(w, http.StatusOK, &api.CreateServiceBindingResponse{Credentials: credentials})

		return
	}

	b.bindings[bindingID] = &binding{
		instanceID: instanceID,
		request:    *request,
	}

	util.JSONResponse(w, http.StatusCreated, &api.CreateServiceBindingResponse{Credentials: credentials})
}

// handleDeleteServiceBinding deletes a service binding.
func (b *Broker) handleDeleteServiceBinding(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	instanceID := params.ByName("instance_id")
	bindingID := params.ByName("binding_id")

	b.lock.Lock()
	defer b.lock.Unlock()

	existing, ok := b.bindings[bindingID]
	if !ok || existing.instanceID != instanceID {
		util.JSONError(w, http.StatusGone, api.ErrorResourceGone, fmt.Errorf("service binding %s does not exist", bindingID))
		return
	}

	delete(b.bindings, bindingID)

	util.JSONResponse(w, http.StatusOK, struct{}{})
}
