// Copyright 2021 dustinxie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import "errors"

// ErrPipelineStopped is returned by Submit once Drain or Stop has been
// called: a stopped pipeline never blocks a caller waiting on a worker
// that isn't coming back.
var ErrPipelineStopped = errors.New("ingest: pipeline stopped")

// ErrInvalidConfig is returned by NewPipeline for a malformed Config.
var ErrInvalidConfig = errors.New("ingest: invalid configuration")
