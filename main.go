// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/kurafs/tracefs/doc"
	"github.com/kurafs/tracefs/pkg/cli"

	fuseserver "github.com/kurafs/tracefs/cmd/fuse-server"
)

func main() {
	// We aggregate all the top-level commands (i.e. 'tracefs <command> ...')
	// as needed.
	var commands cli.Commands
	commands = append(commands, fuseserver.FuseServerCmd)

	// Documentation pseudo-commands.
	commands = append(commands, doc.ArchitectureCmd)
	commands = append(commands, doc.CoverageCmd)

	abstract := "tracefs serves a bolt database as a read-only file system, tracing every operation."
	if err := cli.Process(abstract, commands); err != nil {
		os.Exit(1)
	}
}
