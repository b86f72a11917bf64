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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterAllCollectorsOnce(t *testing.T) {
	req := require.New(t)

	c := New("omnisketch")
	reg := prometheus.NewRegistry()
	req.NotPanics(func() { c.MustRegister(reg) })

	c.RecordsAbsorbed.Inc()
	c.ActiveShards.Set(3)

	mfs, err := reg.Gather()
	req.NoError(err)
	req.NotEmpty(mfs)
}
