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

package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/credentials"
	"github.com/couchbase/service-broker-tests/pkg/log"
	"github.com/couchbase/service-broker-tests/pkg/status"

	"github.com/go-resty/resty/v2"
	"github.com/golang/glog"
)

const (
	pathCatalog         = "/v2/catalog"
	pathServiceInstance = "/v2/service_instances/{instance_id}"
	pathLastOperation   = "/v2/service_instances/{instance_id}/last_operation"
	pathServiceBinding  = "/v2/service_instances/{instance_id}/service_bindings/{binding_id}"
)

// ServiceBrokerInterface is a client for the Open Service Broker API.
type ServiceBrokerInterface interface {
	// Catalog returns the service catalog.
	Catalog(ctx context.Context) (*api.Catalog, error)

	// Provision asynchronously creates a service instance.
	Provision(ctx context.Context, instanceID string, request *api.CreateServiceInstanceRequest) (*api.CreateServiceInstanceResponse, error)

	// Deprovision asynchronously deletes a service instance.
	Deprovision(ctx context.Context, instanceID string) error

	// GetLastStatus returns the status of the last operation on a service instance.
	GetLastStatus(ctx context.Context, instanceID string) (status.Status, error)

	// Bind creates a service binding.
	Bind(ctx context.Context, instanceID, bindingID string, request *api.CreateServiceBindingRequest) (*api.CreateServiceBindingResponse, error)

	// Unbind deletes a service binding.
	Unbind(ctx context.Context, instanceID, bindingID string) error
}

// instanceRecord remembers what a service instance was provisioned with, as
// the broker requires the same service and plan to delete it.
type instanceRecord struct {
	serviceID string
	planID    string
}

// serviceBroker implements the service broker client.
type serviceBroker struct {
	client *resty.Client

	// instances records provisioned service instances.
	instances     map[string]instanceRecord
	instancesLock sync.Mutex
}

func newServiceBroker(client *resty.Client, apiVersion string, creds *credentials.Credentials) ServiceBrokerInterface {
	client.SetHeader(api.HeaderAPIVersion, apiVersion)

	if creds != nil {
		client.SetBasicAuth(creds.Username, creds.Password)
	}

	return &serviceBroker{
		client:    client,
		instances: map[string]instanceRecord{},
	}
}

// request returns a new request scoped to a service instance.
func (s *serviceBroker) request(ctx context.Context, instanceID string) *resty.Request {
	return s.client.R().
		SetContext(ctx).
		SetPathParam("instance_id", instanceID)
}

// Catalog returns the service catalog.
func (s *serviceBroker) Catalog(ctx context.Context) (*api.Catalog, error) {
	catalog := &api.Catalog{}

	response, err := s.client.R().SetContext(ctx).SetResult(catalog).Get(pathCatalog)
	if err != nil {
		return nil, err
	}

	if err := expect(response, http.StatusOK); err != nil {
		return nil, err
	}

	return catalog, nil
}

// Provision asynchronously creates a service instance.
func (s *serviceBroker) Provision(ctx context.Context, instanceID string, request *api.CreateServiceInstanceRequest) (*api.CreateServiceInstanceResponse, error) {
	result := &api.CreateServiceInstanceResponse{}

	response, err := s.request(ctx, instanceID).
		SetQueryParam(api.QueryAcceptsIncomplete, "true").
		SetBody(request).
		SetResult(result).
		Put(pathServiceInstance)
	if err != nil {
		return nil, err
	}

	if err := expect(response, success...); err != nil {
		return nil, err
	}

	s.instancesLock.Lock()
	s.instances[instanceID] = instanceRecord{serviceID: request.ServiceID, planID: request.PlanID}
	s.instancesLock.Unlock()

	glog.V(log.LevelDebug).Infof("provisioned instance %s operation %s", instanceID, result.Operation)

	return result, nil
}

// Deprovision asynchronously deletes a service instance.
func (s *serviceBroker) Deprovision(ctx context.Context, instanceID string) error {
	request := s.request(ctx, instanceID).
		SetQueryParam(api.QueryAcceptsIncomplete, "true")

	s.instancesLock.Lock()
	record, ok := s.instances[instanceID]
	s.instancesLock.Unlock()

	if ok {
		request.SetQueryParam(api.QueryServiceID, record.serviceID)
		request.SetQueryParam(api.QueryPlanID, record.planID)
	}

	response, err := request.Delete(pathServiceInstance)
	if err != nil {
		return err
	}

	return expect(response, success...)
}

// GetLastStatus returns the status of the last operation on a service instance.
// An untracked instance has an empty status, and a deleted one is reported as
// having succeeded.
func (s *serviceBroker) GetLastStatus(ctx context.Context, instanceID string) (status.Status, error) {
	response, err := s.request(ctx, instanceID).Get(pathLastOperation)
	if err != nil {
		return status.Empty(), err
	}

	switch response.StatusCode() {
	case http.StatusOK:
		return status.Decode(response.Body())
	case http.StatusNotFound:
		return status.Empty(), nil
	case http.StatusGone:
		return status.Structured(api.PollStateSucceeded), nil
	}

	return status.Empty(), newHTTPStatusError(response)
}

// Bind creates a service binding.
func (s *serviceBroker) Bind(ctx context.Context, instanceID, bindingID string, request *api.CreateServiceBindingRequest) (*api.CreateServiceBindingResponse, error) {
	result := &api.CreateServiceBindingResponse{}

	response, err := s.request(ctx, instanceID).
		SetPathParam("binding_id", bindingID).
		SetQueryParam(api.QueryAcceptsIncomplete, "true").
		SetBody(request).
		SetResult(result).
		Put(pathServiceBinding)
	if err != nil {
		return nil, err
	}

	if err := expect(response, success...); err != nil {
		return nil, err
	}

	return result, nil
}

// Unbind deletes a service binding.
func (s *serviceBroker) Unbind(ctx context.Context, instanceID, bindingID string) error {
	request := s.request(ctx, instanceID).
		SetPathParam("binding_id", bindingID).
		SetQueryParam(api.QueryAcceptsIncomplete, "true")

	s.instancesLock.Lock()
	record, ok := s.instances[instanceID]
	s.instancesLock.Unlock()

	if ok {
		request.SetQueryParam(api.QueryServiceID, record.serviceID)
		request.SetQueryParam(api.QueryPlanID, record.planID)
	}

	response, err := request.Delete(pathServiceBinding)
	if err != nil {
		return err
	}

	return expect(response, success...)
}
