package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/jscore/runtime"
)

func TestPromiseOrdering(t *testing.T) {
	runCases(t, []scriptCase{
		{"then runs after sync code", `const log = []; Promise.resolve(1).then(v => log.push("then" + v)); log.push("sync"); log`, "sync,then1"},
		{"chaining", `const log = []; Promise.resolve(1).then(v => v + 1).then(v => log.push(v)); log`, "2"},
		{"microtask interleaving", `const log = []; Promise.resolve().then(() => log.push("a1")).then(() => log.push("a2")); Promise.resolve().then(() => log.push("b1")).then(() => log.push("b2")); log`, "a1,b1,a2,b2"},
		{"executor runs synchronously", `const log = []; new Promise(r => { log.push("exec"); r() }); log.push("after"); log`, "exec,after"},
		{"catch", `const log = []; Promise.reject(new Error("no")).catch(e => log.push(e.message)); log`, "no"},
		{"throw in then rejects", `const log = []; Promise.resolve().then(() => { throw 7 }).catch(e => log.push(e)); log`, "7"},
		{"executor throw rejects", `const log = []; new Promise(() => { throw "boom" }).catch(e => log.push(e)); log`, "boom"},
		{"resolve only once", `const log = []; new Promise((res, rej) => { res(1); rej(2); res(3) }).then(v => log.push(v), e => log.push("rej")); log`, "1"},
		{"thenable adoption", `const log = []; Promise.resolve({then(r) { r(42) }}).then(v => log.push(v)); log`, "42"},
		{"resolve returns same promise", `const p = Promise.resolve(1); Promise.resolve(p) === p`, "true"},
		{"finally passes value", `const log = []; Promise.resolve(5).finally(() => log.push("f")).then(v => log.push(v)); log`, "f,5"},
		{"finally rethrows", `const log = []; Promise.reject(1).finally(() => {}).catch(e => log.push("c" + e)); log`, "c1"},
		{"self resolution", `const log = []; let res; const p = new Promise(r => { res = r }); res(p); p.catch(e => log.push(e.constructor.name)); log`, "TypeError"},
		{"withResolvers", `const log = []; const {promise, resolve} = Promise.withResolvers(); promise.then(v => log.push(v)); resolve("ok"); log`, "ok"},
		{"tag", `Object.prototype.toString.call(Promise.resolve())`, "[object Promise]"},
	})
}

func TestPromiseCombinators(t *testing.T) {
	runCases(t, []scriptCase{
		{"all", `const log = []; Promise.all([1, Promise.resolve(2), {then(r) { r(3) }}]).then(v => log.push(v.join())); log`, "1,2,3"},
		{"all empty", `const log = []; Promise.all([]).then(v => log.push(v.length)); log`, "0"},
		{"all rejects", `const log = []; Promise.all([1, Promise.reject("x")]).catch(e => log.push(e)); log`, "x"},
		{"allSettled", `const log = []; Promise.allSettled([Promise.resolve(1), Promise.reject(2)]).then(r => log.push(JSON.stringify(r))); log`, `[{"status":"fulfilled","value":1},{"status":"rejected","reason":2}]`},
		{"any", `const log = []; Promise.any([Promise.reject(1), Promise.resolve(2)]).then(v => log.push(v)); log`, "2"},
		{"any all rejected", `const log = []; Promise.any([Promise.reject(1), Promise.reject(2)]).catch(e => log.push(e.constructor.name + ":" + e.errors.join())); log`, "AggregateError:1,2"},
		{"race", `const log = []; Promise.race([new Promise(() => {}), Promise.resolve("fast")]).then(v => log.push(v)); log`, "fast"},
	})
}

func TestAsyncFunctions(t *testing.T) {
	runCases(t, []scriptCase{
		{"await", `const log = []; (async () => { log.push(await Promise.resolve(3)) })(); log`, "3"},
		{"await ordering", `const log = []; (async () => { log.push(1); await null; log.push(3) })(); log.push(2); log`, "1,2,3"},
		{"async throw rejects", `const log = []; (async () => { throw new Error("e") })().catch(e => log.push(e.message)); log`, "e"},
		{"try await", `const log = []; (async () => { try { await Promise.reject("r") } catch (e) { log.push("caught " + e) } })(); log`, "caught r"},
	})
}

func TestPromiseErrors(t *testing.T) {
	runThrowCases(t, []throwCase{
		{"without new", `Promise(() => {})`, "TypeError: Promise constructor cannot be invoked without 'new'"},
		{"bad executor", `new Promise(1)`, "TypeError: Promise resolver 1 is not a function"},
		{"then receiver", `Promise.prototype.then.call({})`, "TypeError: Method Promise.prototype.then called on incompatible receiver #<Object>"},
	})
}

func TestUnhandledRejectionIsReported(t *testing.T) {
	h := newHarness(t)
	var reasons []string
	h.a.OnUnhandledRejection(func(_ *runtime.Object, reason *runtime.Value) {
		reasons = append(reasons, reason.String())
	})
	_, err := h.run(`Promise.reject("lost"); Promise.reject("kept").catch(() => {})`)
	require.NoError(t, err)
	assert.Equal(t, []string{"lost"}, reasons)
}
