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

package main

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"strings"

	"github.com/couchbase/service-broker-tests/pkg/broker"
	"github.com/couchbase/service-broker-tests/pkg/util"
	"github.com/couchbase/service-broker-tests/pkg/version"

	"github.com/golang/glog"
)

const (
	// errorCode is what to return on application error.
	errorCode = 1
)

// ErrFatal is raised when the broker is unable to start.
var ErrFatal = errors.New("fatal error")

// readSecret reads a secret from a file, trimming any trailing new line.
func readSecret(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

func main() {
	// address is the address to listen on.
	var address string

	// username is the user clients must authenticate as.
	var username string

	// passwordPath is the location of the file containing the password for authentication.
	var passwordPath string

	// tokenPath is the location of the file containing the application catalog token.
	var tokenPath string

	// tlsCertificatePath is the location of the file containing the TLS server certifcate.
	var tlsCertificatePath string

	// tlsPrivateKeyPath is the location of the file containing the TLS private key.
	var tlsPrivateKeyPath string

	// caPath is where to write the CA certificate when TLS material is generated.
	var caPath string

	flag.StringVar(&address, "listen", ":8443", "Address to listen on")
	flag.StringVar(&username, "username", "broker", "Username for API authentication")
	flag.StringVar(&passwordPath, "password", "/var/run/secrets/service-broker/password", "Password for API authentication")
	flag.StringVar(&tokenPath, "token", "", "Token for application catalog API authentication")
	flag.StringVar(&tlsCertificatePath, "tls-certificate", "", "Path to the server TLS certificate, generated if not set")
	flag.StringVar(&tlsPrivateKeyPath, "tls-private-key", "", "Path to the server TLS key, generated if not set")
	flag.StringVar(&caPath, "ca-certificate", "ca.pem", "Path to write the CA certificate to when TLS is generated")
	flag.Parse()

	glog.Infof("%s broker %s (git commit %s)", version.Application, version.Version, version.GitCommit)

	password, err := readSecret(passwordPath)
	if err != nil {
		glog.Fatal(err)
		os.Exit(errorCode)
	}

	if password == "" {
		glog.Fatal(fmt.Errorf("%w: password must be set", ErrFatal))
		os.Exit(errorCode)
	}

	token, err := readSecret(tokenPath)
	if err != nil {
		glog.Fatal(err)
		os.Exit(errorCode)
	}

	var cert tls.Certificate

	if tlsCertificatePath != "" {
		if cert, err = tls.LoadX509KeyPair(tlsCertificatePath, tlsPrivateKeyPath); err != nil {
			glog.Fatal(err)
			os.Exit(errorCode)
		}
	} else {
		material, err := util.GenerateLocalTLS()
		if err != nil {
			glog.Fatal(err)
			os.Exit(errorCode)
		}

		if err := ioutil.WriteFile(caPath, material.CA, 0600); err != nil {
			glog.Fatal(err)
			os.Exit(errorCode)
		}

		glog.Infof("generated TLS certificate, CA written to %s", caPath)

		cert = material.Certificate
	}

	b := broker.New(broker.Options{
		Username: username,
		Password: password,
		Token:    token,
	})

	listener, err := net.Listen("tcp", address)
	if err != nil {
		glog.Fatal(err)
		os.Exit(errorCode)
	}

	glog.Infof("listening on %s", listener.Addr())

	if err := broker.NewServer(b, cert).ServeTLS(listener, "", ""); err != nil {
		glog.Fatal(err)
		os.Exit(errorCode)
	}
}
