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

package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Env is what a CLI invocation prints to and how it names itself.
type Env struct {
	Program        string
	Stdout, Stderr io.Writer
}

// Process is the entry point for CLI commands. User provided arguments are captured and processed
// through the defined commands, and the appropriate one (if any), is executed.
// As is structured at the time of writing, there's no root level command or flags. Given this when
// <program> is invoked without any arguments, the full usage is printed out instead.
//
// All CLI errors are printed out to os.Stderr and follow with os.Exit(2). Command execution errors
// are propagated to the caller. All remaining printed output is directed at os.Stdout.
//
// The abstract is used in generating structured help messages. Example:
//
//      $ <program> -h
//      <abstract>
//
//      Usage of <program>:
//          ...
//
func Process(abstract string, commands Commands) error {
	env := Env{Program: os.Args[0], Stdout: os.Stdout, Stderr: os.Stderr}
	code, err := Execute(env, abstract, commands, os.Args[1:])
	if code != 0 {
		os.Exit(code)
	}
	return err
}

// Execute is Process with the environment and arguments spelled out. Rather than exiting, it
// returns the status Process would exit with; it is non-zero only for CLI errors, which have
// been printed already.
func Execute(env Env, abstract string, commands Commands, args []string) (exitCode int, err error) {
	// FlagSet outputs are discarded for composability with the rest of this package.
	for _, cmd := range commands {
		cmd.FlagSet.SetOutput(io.Discard)
	}

	// We fall back to printing out default usage when no commands are provided. We also provide an
	// out of the box '<program> help' command, '<program> -h' being a special allowance.
	if len(args) == 0 || (len(args) == 1 && (args[0] == "help" || args[0] == "-h")) {
		printFullUsage(env, abstract, commands)
		return 0, nil
	}

	command := args[0]
	if command == "help" {
		if len(args) > 2 {
			fmt.Fprintf(env.Stderr, "Usage: %s help [command]\n\n", env.Program)
			fmt.Fprintln(env.Stderr, "Too many arguments given.")
			return 2, nil
		}
		topic := args[1]
		if err := printCommandUsage(env, topic, commands); err != nil {
			fmt.Fprintf(env.Stderr, "Unknown help topic '%s'\n\n", topic)
			fmt.Fprintf(env.Stderr, "Run '%s help' for available topics.\n", env.Program)
			return 2, nil
		}
		return 0, nil
	}

	cmd := commands.Lookup(command)
	if cmd == nil || !cmd.Runnable() {
		fmt.Fprintf(env.Stderr, "Unknown command '%s'\n\n", command)
		fmt.Fprintf(env.Stderr, "Run '%s help' for available commands.\n", env.Program)
		return 2, nil
	}

	// Parse errors are handled here, everything else is propagated up above.
	err = cmd.Run(cmd, args[1:])
	var perr *ParseError
	if !errors.As(err, &perr) {
		return 0, err
	}

	// The flag error where help is requested is a valid state, despite the flag.Parse error
	// response. We check after cmd.Run as the flags may have been defined there.
	if errors.Is(perr.Err, flag.ErrHelp) {
		printCommandHelp(env, cmd)
		return 0, nil
	}
	printCommandParsingError(env, cmd, perr.Err)
	return 2, nil
}
