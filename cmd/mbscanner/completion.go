// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kraklabs/mbscanner/internal/errors"
)

// bashCompletionTemplate is the bash completion script for mbscanner.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for mbscanner
# Installation:
#   source <(mbscanner completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(mbscanner completion bash)' >> ~/.bashrc

_mbscanner_completion() {
    local cur prev commands
    commands="init search github codeql extract-code count-lines migrate visualize completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [ $COMP_CWORD -eq 1 ]; then
        if [[ ${cur} == -* ]] ; then
            COMPREPLY=( $(compgen -W "--version --config --json --quiet --no-color --verbose --metrics-addr" -- ${cur}) )
        else
            COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        fi
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    local sub="${COMP_WORDS[2]}"
    case "${cmd}" in
        init)
            COMPREPLY=( $(compgen -W "--force --yes --data-dir --language --min-stars --codeql-path" -- ${cur}) )
            ;;
        search)
            COMPREPLY=( $(compgen -W "--language --min-stars --max-days-since-commit --max-results --update" -- ${cur}) )
            ;;
        github)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "rate-limit clone" -- ${cur}) )
            elif [ "${sub}" = "clone" ]; then
                COMPREPLY=( $(compgen -W "--max-projects --force" -- ${cur}) )
            fi
            ;;
        codeql)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "version create-db create-db-batch query query-batch summary" -- ${cur}) )
                return 0
            fi
            case "${sub}" in
                create-db)
                    COMPREPLY=( $(compgen -W "--language --force --threads --ram" -- ${cur}) ) ;;
                create-db-batch)
                    COMPREPLY=( $(compgen -W "--language --max-projects --skip-existing --force --threads --ram --topic --project-language --min-stars" -- ${cur}) ) ;;
                query|query-batch)
                    if [ "${prev}" = "-q" ] || [ "${prev}" = "--query-files" ]; then
                        COMPREPLY=( $(compgen -f -X '!*.ql' -- ${cur}) )
                    else
                        COMPREPLY=( $(compgen -W "--query-files --format --threads --ram --sarif-category --no-snippets --max-projects" -- ${cur}) )
                    fi
                    ;;
                summary)
                    COMPREPLY=( $(compgen -W "--threshold --output-dir" -- ${cur}) ) ;;
            esac
            ;;
        extract-code)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "single batch" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -W "--sarif-dir --repos-dir --output-dir --summary --projects --workers" -- ${cur}) )
            fi
            ;;
        count-lines)
            COMPREPLY=( $(compgen -W "--repositories-dir --batch-size --force" -- ${cur}) )
            ;;
        migrate)
            COMPREPLY=( $(compgen -W "--dry-run" -- ${cur}) )
            ;;
        visualize)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "scatter boxplot" -- ${cur}) )
            elif [ "${sub}" = "scatter" ]; then
                COMPREPLY=( $(compgen -W "--query-result --output --title --xlabel --ylabel --log-scale-x --log-scale-y --show-correlation --show-regression --use-hexbin --gridsize --cmap" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -W "--input-dir --output --title --log-scale --query-order" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _mbscanner_completion mbscanner
`

// zshCompletionTemplate is the zsh completion script for mbscanner.
const zshCompletionTemplate = `#compdef mbscanner

# Zsh completion script for mbscanner
# Installation:
#   mbscanner completion zsh > "${fpath[1]}/_mbscanner"
#   rm -f ~/.zcompdump; compinit

_mbscanner() {
    local -a commands
    commands=(
        'init:Create .mbscanner/config.yaml and the workspace'
        'search:Search GitHub and store matching projects'
        'github:GitHub commands (rate-limit, clone)'
        'codeql:CodeQL commands'
        'extract-code:Extract code snippets for SARIF findings'
        'count-lines:Count JavaScript lines of cloned projects'
        'migrate:Apply metadata database migrations'
        'visualize:Plot query results'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to the config file]:config file:_files -g "*.yaml"' \
        '--json[Output as JSON]' \
        '(-q --quiet)'{-q,--quiet}'[Suppress progress output]' \
        '--no-color[Disable colored output]' \
        '*-v[Increase log verbosity]' \
        '--metrics-addr[Prometheus metrics address]:address:' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                github)
                    _arguments '1:subcommand:(rate-limit clone)' \
                        '--max-projects[Maximum projects]:count:' \
                        '(-f --force)'{-f,--force}'[Clone again]'
                    ;;
                codeql)
                    _arguments '1:subcommand:(version create-db create-db-batch query query-batch summary)' \
                        '*'{-q,--query-files}'[Query file]:query:_files -g "*.ql"' \
                        '(-l --language)'{-l,--language}'[Analysis language]:language:' \
                        '--max-projects[Maximum projects]:count:' \
                        '--threads[CodeQL threads]:threads:' \
                        '--ram[CodeQL memory in MB]:ram:' \
                        '--topic[Only projects with this topic]:topic:' \
                        '--project-language[Only projects in this language]:language:' \
                        '--min-stars[Minimum stars]:stars:' \
                        '(-t --threshold)'{-t,--threshold}'[Minimum result count]:count:' \
                        '(-f --force)'{-f,--force}'[Overwrite existing databases]'
                    ;;
                extract-code)
                    _arguments '1:subcommand:(single batch)' \
                        '--summary[Summary JSON]:file:_files -g "*.json"' \
                        '--projects[Comma separated projects]:projects:' \
                        '(-j --workers)'{-j,--workers}'[Parallel workers]:workers:'
                    ;;
                count-lines)
                    _arguments \
                        '(-r --repositories-dir)'{-r,--repositories-dir}'[Repositories directory]:dir:_files -/' \
                        '(-b --batch-size)'{-b,--batch-size}'[Batch size]:size:' \
                        '(-f --force)'{-f,--force}'[Recount]'
                    ;;
                migrate)
                    _arguments '(-d --dry-run)'{-d,--dry-run}'[Report only]'
                    ;;
                visualize)
                    _arguments '1:subcommand:(scatter boxplot)' \
                        '(-q --query-result)'{-q,--query-result}'[Summary JSON]:file:_files -g "*.json"' \
                        '(-i --input-dir)'{-i,--input-dir}'[Summary directory]:dir:_files -/' \
                        '(-o --output)'{-o,--output}'[Output image]:file:_files' \
                        '--use-hexbin[Hexagonal density plot]' \
                        '--gridsize[Hexagons along x]:size:' \
                        '--cmap[ColorBrewer palette]:cmap:(YlOrRd Blues Greens Reds Greys Purples)'
                    ;;
                completion)
                    _arguments '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_mbscanner
`

// fishCompletionTemplate is the fish completion script for mbscanner.
const fishCompletionTemplate = `# Fish completion script for mbscanner
# Installation:
#   mbscanner completion fish > ~/.config/fish/completions/mbscanner.fish

# Commands
complete -c mbscanner -f -n "__fish_use_subcommand" -a "init" -d "Create .mbscanner/config.yaml and the workspace"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "search" -d "Search GitHub and store matching projects"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "github" -d "GitHub commands"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "codeql" -d "CodeQL commands"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "extract-code" -d "Extract code snippets for SARIF findings"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "count-lines" -d "Count JavaScript lines of cloned projects"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "migrate" -d "Apply metadata database migrations"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "visualize" -d "Plot query results"
complete -c mbscanner -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c mbscanner -l version -d "Show version and exit"
complete -c mbscanner -l config -d "Path to the config file" -r
complete -c mbscanner -l json -d "Output as JSON"
complete -c mbscanner -s q -l quiet -d "Suppress progress output"
complete -c mbscanner -l no-color -d "Disable colored output"
complete -c mbscanner -s v -d "Increase log verbosity"
complete -c mbscanner -l metrics-addr -d "Prometheus metrics address" -r

# Subcommands
complete -c mbscanner -f -n "__fish_seen_subcommand_from github" -a "rate-limit clone"
complete -c mbscanner -f -n "__fish_seen_subcommand_from codeql" -a "version create-db create-db-batch query query-batch summary"
complete -c mbscanner -f -n "__fish_seen_subcommand_from extract-code" -a "single batch"
complete -c mbscanner -f -n "__fish_seen_subcommand_from visualize" -a "scatter boxplot"
complete -c mbscanner -f -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"

# search flags
complete -c mbscanner -n "__fish_seen_subcommand_from search" -s l -l language -d "Primary language" -r
complete -c mbscanner -n "__fish_seen_subcommand_from search" -s s -l min-stars -d "Minimum stars" -r
complete -c mbscanner -n "__fish_seen_subcommand_from search" -s d -l max-days-since-commit -d "Maximum days since the last push" -r
complete -c mbscanner -n "__fish_seen_subcommand_from search" -s n -l max-results -d "Maximum repositories" -r
complete -c mbscanner -n "__fish_seen_subcommand_from search" -s u -l update -d "Update stored projects"

# codeql flags
complete -c mbscanner -n "__fish_seen_subcommand_from codeql" -s q -l query-files -d "Query file" -r
complete -c mbscanner -n "__fish_seen_subcommand_from codeql" -l max-projects -d "Maximum projects" -r
complete -c mbscanner -n "__fish_seen_subcommand_from codeql" -s t -l threshold -d "Minimum result count" -r
complete -c mbscanner -n "__fish_seen_subcommand_from codeql" -s f -l force -d "Overwrite existing databases"
complete -c mbscanner -n "__fish_seen_subcommand_from codeql" -l topic -d "Only projects with this topic" -r
complete -c mbscanner -n "__fish_seen_subcommand_from codeql" -l project-language -d "Only projects in this language" -r
complete -c mbscanner -n "__fish_seen_subcommand_from codeql" -l min-stars -d "Minimum stars" -r

# count-lines and migrate flags
complete -c mbscanner -n "__fish_seen_subcommand_from count-lines" -s r -l repositories-dir -d "Repositories directory" -r
complete -c mbscanner -n "__fish_seen_subcommand_from count-lines" -s b -l batch-size -d "Batch size" -r
complete -c mbscanner -n "__fish_seen_subcommand_from count-lines" -s f -l force -d "Recount"
complete -c mbscanner -n "__fish_seen_subcommand_from migrate" -s d -l dry-run -d "Report only"

# visualize flags
complete -c mbscanner -n "__fish_seen_subcommand_from visualize" -s q -l query-result -d "Summary JSON" -r
complete -c mbscanner -n "__fish_seen_subcommand_from visualize" -s i -l input-dir -d "Summary directory" -r
complete -c mbscanner -n "__fish_seen_subcommand_from visualize" -s o -l output -d "Output image" -r
complete -c mbscanner -n "__fish_seen_subcommand_from visualize" -l use-hexbin -d "Hexagonal density plot"
complete -c mbscanner -n "__fish_seen_subcommand_from visualize" -l gridsize -d "Hexagons along x" -r
complete -c mbscanner -n "__fish_seen_subcommand_from visualize" -l cmap -d "ColorBrewer palette" -r
`

// completionOut is where completion scripts are written.
var completionOut io.Writer = os.Stdout

// runCompletion executes the 'completion' CLI command, writing the
// completion script of the named shell to stdout.
//
// Examples:
//
//	source <(mbscanner completion bash)
//	mbscanner completion zsh > "${fpath[1]}/_mbscanner"
//	mbscanner completion fish | source
func runCompletion(_ context.Context, _ *app, args []string) error {
	fs := newFlagSet("completion", `Usage: mbscanner completion <shell>

Generates a completion script for bash, zsh or fish.

Examples:
  source <(mbscanner completion bash)
  mbscanner completion zsh > "${fpath[1]}/_mbscanner"
  mbscanner completion fish > ~/.config/fish/completions/mbscanner.fish
`)
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	if fs.NArg() != 1 {
		return errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'mbscanner completion bash', 'mbscanner completion zsh', or 'mbscanner completion fish'",
		)
	}

	var script string
	switch shell := fs.Arg(0); shell {
	case "bash":
		script = bashCompletionTemplate
	case "zsh":
		script = zshCompletionTemplate
	case "fish":
		script = fishCompletionTemplate
	default:
		return errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", shell),
			"Run 'mbscanner completion bash', 'mbscanner completion zsh', or 'mbscanner completion fish'",
		)
	}
	_, err := fmt.Fprint(completionOut, script)
	return err
}
