// Copyright 2023 The Strata Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package client

import (
	"fmt"
	"log"
)

// Logger receives diagnostic output from a scan: retries taken,
// best-effort close failures, backoff decisions.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DefaultLogger logs through the standard library's log package.
var DefaultLogger Logger = defaultLogger{}

type defaultLogger struct{}

func (defaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, "INFO "+fmt.Sprintf(format, args...))
}

func (defaultLogger) Errorf(format string, args ...interface{}) {
	_ = log.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}
