/**
 * Copyright 2024 Confluent Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package eventlog

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/moviestream/eventlog/schemaregistry"
)

// filterExecutor compiles and evaluates CEL entry filters. An expression
// sees two variables: kind, the event kind as a string, and entry, the raw
// entry fields as a map. Programs are cached by expression.
type filterExecutor struct {
	env       *cel.Env
	cacheLock sync.RWMutex
	cache     map[string]cel.Program
}

func newFilterExecutor() (*filterExecutor, error) {
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("entry", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	return &filterExecutor{
		env:   env,
		cache: map[string]cel.Program{},
	}, nil
}

func (c *filterExecutor) program(expr string) (cel.Program, error) {
	c.cacheLock.RLock()
	program, ok := c.cache[expr]
	c.cacheLock.RUnlock()
	if ok {
		return program, nil
	}
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("filter %q yields %s, not bool", expr, t)
	}
	program, err := c.env.Program(ast)
	if err != nil {
		return nil, err
	}
	c.cacheLock.Lock()
	c.cache[expr] = program
	c.cacheLock.Unlock()
	return program, nil
}

// match evaluates program for one entry and reports whether it is kept
func (c *filterExecutor) match(program cel.Program, kind schemaregistry.Kind, fields map[string]interface{}) (bool, error) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	out, _, err := program.Eval(map[string]interface{}{
		"kind":  string(kind),
		"entry": fields,
	})
	if err != nil {
		return false, err
	}
	if types.IsError(out) {
		return false, out.Value().(error)
	}
	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter yields %s, not bool", out.Type().TypeName())
	}
	return keep, nil
}
