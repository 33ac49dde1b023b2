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

// Package credentials allocates accounts for tests to run as.
package credentials

import (
	"fmt"
	"strings"
)

// Role is the role of a set of credentials.  Anything other than the predefined
// roles is treated as a custom role name.
type Role string

const (
	// Primary is the unprivileged account tests run as by default.
	Primary Role = "primary"

	// Admin is the privileged account.
	Admin Role = "admin"

	// Alt is a second unprivileged account, used to test isolation between tenants.
	Alt Role = "alt"
)

// Credentials are what a client needs to authenticate.
type Credentials struct {
	// Username is the account name.
	Username string

	// Password is the account password.
	Password string

	// TenantName is the tenant (or project) the account is scoped to.
	TenantName string

	// DomainName is the identity domain, only used by v3 identity.
	DomainName string

	// Token, if set, is used in preference to basic authentication.
	Token string

	// Roles are the role names granted to the account.
	Roles []string
}

// Empty returns whether any of the mandatory account fields are missing.
func (c *Credentials) Empty() bool {
	return c.Username == "" || c.Password == "" || c.TenantName == ""
}

// HasRole returns whether the credentials were granted the named role.
func (c *Credentials) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}

	return false
}

// String returns a loggable representation, secrets are never included.
func (c *Credentials) String() string {
	return fmt.Sprintf("%s@%s [%s]", c.Username, c.TenantName, strings.Join(c.Roles, ","))
}
