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

// Package cli allows the construction of structured command-line interfaces with sub-commands and
// help topics. This is very similar to the interface in git where the top-level program name (git)
// is preceded by a qualifier that determines what sub-command to execute
// (git {reflog,commit,cherry-pick}).
//
// Package cli explicitly avoids init time global hooks and has a minimal binary size footprint.
//
// Example (from tracefs):
//
//      // We aggregate all the top-level commands, accessible via 'tracefs <command> ...'.
//      var commands cli.Commands
//      commands = append(commands, fuseserver.FuseServerCmd)
//
//      // We also include documentation pseudo-commands.
//      commands = append(commands, doc.ArchitectureCmd)
//      commands = append(commands, doc.CoverageCmd)
//
//      abstract := "tracefs serves a bolt database as a traced FUSE file system."
//      if err := cli.Process(abstract, commands); err != nil {
//      	os.Exit(1)
//      }
//
// This generates the following top-level behaviour:
//
//      $ tracefs {,-h,help}
//      tracefs serves a bolt database as a traced FUSE file system.
//
//      Usage:
//
//          tracefs command [arguments]
//
//      The commands are:
//
//              fuse-server            mount a bolt database, tracing every operation
//
//      Use 'tracefs help [command]' for more information about a command.
//
//      Additional help topics:
//
//              architecture           tracefs architecture overview
//              coverage               which operations are traced
//
//      Use "tracefs help [topic]" for more information about that topic.
//
// Using help for a listed command displays its long description; doing the same for an
// additional help topic prints the topic. Individual commands also have their own '-h'
// switches listing their flags.
//
//      $ tracefs fuse-server -h
//      Usage:
//
//        tracefs fuse-server [-db path] [flags] <mount-point>
//
//        -config string
//              Path to a YAML config file
//        ...
//
// A command's Run should wrap flag parsing errors with CmdParseError, so that they are printed
// with the command's usage and the process exits with status 2:
//
//      if err := cmd.FlagSet.Parse(args); err != nil {
//      	return cli.CmdParseError(err)
//      }
package cli
