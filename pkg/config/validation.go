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

package config

import (
	"encoding/json"

	"github.com/couchbase/service-broker-tests/pkg/errors"

	"github.com/go-openapi/spec"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
)

// schemaJSON is the structural schema of a configuration document.
const schemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "service_broker": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "run_service_broker_tests": {"type": "boolean"},
        "endpoint": {"type": "string", "pattern": "^(https?://.+)?$"},
        "api_version": {"type": "string", "pattern": "^([0-9]+\\.[0-9]+)?$"},
        "insecure": {"type": "boolean"},
        "ca_file": {"type": "string"}
      }
    },
    "service_available": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "catalog_broker_api": {"type": "boolean"},
        "application_catalog": {"type": "boolean"}
      }
    },
    "identity": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "uri": {"type": "string", "pattern": "^(https?://.+)?$"},
        "auth_version": {"type": "string", "enum": ["", "v2", "v3"]},
        "username": {"type": "string"},
        "password": {"type": "string"},
        "tenant_name": {"type": "string"},
        "alt_username": {"type": "string"},
        "alt_password": {"type": "string"},
        "alt_tenant_name": {"type": "string"},
        "admin_role": {"type": "string"}
      }
    },
    "auth": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "use_dynamic_credentials": {"type": "boolean"},
        "admin_username": {"type": "string"},
        "admin_password": {"type": "string"},
        "admin_tenant_name": {"type": "string"}
      }
    },
    "application_catalog": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "endpoint": {"type": "string", "pattern": "^(https?://.+)?$"}
      }
    }
  }
}`

// schema is the parsed form of schemaJSON.
var schema = mustSchema()

func mustSchema() *spec.Schema {
	s := &spec.Schema{}
	if err := json.Unmarshal([]byte(schemaJSON), s); err != nil {
		panic(err)
	}

	return s
}

// validateSchema checks a JSON document against the configuration schema.
func validateSchema(document []byte) error {
	var object interface{}
	if err := json.Unmarshal(document, &object); err != nil {
		return errors.NewConfigurationError("configuration unmarshal failed: %v", err)
	}

	// An empty YAML document is null, treat it as an empty configuration.
	if object == nil {
		object = map[string]interface{}{}
	}

	// Zero values are indistinguishable from unset attributes once decoded,
	// and the validator rejects them as null, so treat them as unset.
	if m, ok := object.(map[string]interface{}); ok {
		pruneZeroValues(m)
	}

	if err := validate.AgainstSchema(schema, object, strfmt.NewFormats()); err != nil {
		return errors.NewConfigurationError("configuration schema validation failed: %v", err)
	}

	return nil
}

// pruneZeroValues recursively removes empty strings, false, zero and empty
// objects from a decoded document.
func pruneZeroValues(object map[string]interface{}) {
	for key, value := range object {
		switch v := value.(type) {
		case map[string]interface{}:
			pruneZeroValues(v)

			if len(v) == 0 {
				delete(object, key)
			}
		case string:
			if v == "" {
				delete(object, key)
			}
		case bool:
			if !v {
				delete(object, key)
			}
		case float64:
			if v == 0 {
				delete(object, key)
			}
		case nil:
			delete(object, key)
		}
	}
}

// Validate checks the configuration is structurally correct, and then does any
// validation that cannot be expressed by the schema.
func (c *Config) Validate() error {
	document, err := json.Marshal(c)
	if err != nil {
		return err
	}

	if err := validateSchema(document); err != nil {
		return err
	}

	if c.ServiceBroker.RunServiceBrokerTests && c.ServiceBroker.Endpoint == "" {
		return errors.NewConfigurationError("service broker endpoint must be set when service broker tests are enabled")
	}

	if c.ServiceAvailable.ApplicationCatalog && c.ApplicationCatalog.Endpoint == "" {
		return errors.NewConfigurationError("application catalog endpoint must be set when the application catalog is available")
	}

	if c.ServiceBroker.Insecure && c.ServiceBroker.CAFile != "" {
		return errors.NewConfigurationError("service broker ca_file and insecure are mutually exclusive")
	}

	if c.Identity.AuthVersion != AuthVersionV2 && c.Identity.AuthVersion != AuthVersionV3 {
		return errors.NewConfigurationError("identity auth_version %q must be %s or %s", c.Identity.AuthVersion, AuthVersionV2, AuthVersionV3)
	}

	return nil
}
