package builtins

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/example/jscore/runtime"
)

// collectionKey normalizes a value under SameValueZero so it can index a
// Go map.
type collectionKey struct {
	t runtime.ValueType
	n float64
	s string
	p any
}

func keyOf(v *runtime.Value) collectionKey {
	switch {
	case v.IsNumber():
		n := v.Float()
		if math.IsNaN(n) {
			return collectionKey{t: runtime.TypeNumber, s: "NaN"}
		}
		if n == 0 {
			n = 0
		}
		return collectionKey{t: runtime.TypeNumber, n: n}
	case v.IsString():
		return collectionKey{t: runtime.TypeString, s: v.Str}
	case v.IsBigInt():
		return collectionKey{t: runtime.TypeBigInt, s: v.BigInt.String()}
	case v.IsBoolean():
		return collectionKey{t: runtime.TypeBoolean, p: v.Bool}
	case v.IsSymbol():
		return collectionKey{t: runtime.TypeSymbol, p: v.Symbol}
	case v.IsObject():
		return collectionKey{t: runtime.TypeObject, p: v.Object}
	}
	return collectionKey{t: v.Type}
}

type collectionEntry struct {
	key, value *runtime.Value
	deleted    bool
}

// collection is the insertion-ordered store behind Map and Set. Deleted
// entries stay in place until compaction so live iterators keep their
// position; compaction rewrites the positions of registered iterators.
type collection struct {
	entries   []*collectionEntry
	index     map[collectionKey]int
	size      int
	iterators mapset.Set[*collectionIterator]
}

func newCollection() *collection {
	return &collection{
		index:     make(map[collectionKey]int),
		iterators: mapset.NewThreadUnsafeSet[*collectionIterator](),
	}
}

func (c *collection) get(k *runtime.Value) (*collectionEntry, bool) {
	i, ok := c.index[keyOf(k)]
	if !ok {
		return nil, false
	}
	return c.entries[i], true
}

func (c *collection) set(k, v *runtime.Value) {
	if e, ok := c.get(k); ok {
		e.value = v
		return
	}
	if k.IsNumber() && k.Float() == 0 {
		k = runtime.Zero
	}
	c.index[keyOf(k)] = len(c.entries)
	c.entries = append(c.entries, &collectionEntry{key: k, value: v})
	c.size++
}

func (c *collection) remove(k *runtime.Value) bool {
	ck := keyOf(k)
	i, ok := c.index[ck]
	if !ok {
		return false
	}
	c.entries[i].deleted = true
	delete(c.index, ck)
	c.size--
	c.maybeCompact()
	return true
}

func (c *collection) clear() {
	for _, e := range c.entries {
		e.deleted = true
	}
	clear(c.index)
	c.size = 0
	c.maybeCompact()
}

func (c *collection) maybeCompact() {
	dead := len(c.entries) - c.size
	if dead < 32 || dead < c.size {
		return
	}
	remap := make([]int, len(c.entries)+1)
	live := c.entries[:0]
	for i, e := range c.entries {
		remap[i] = len(live)
		if !e.deleted {
			c.index[keyOf(e.key)] = len(live)
			live = append(live, e)
		}
	}
	remap[len(c.entries)] = len(live)
	clear(c.entries[len(live):])
	c.entries = live
	c.iterators.Each(func(it *collectionIterator) bool {
		it.pos = remap[min(it.pos, len(remap)-1)]
		return false
	})
}

// forEach visits live entries, including ones added during the walk.
func (c *collection) forEach(fn func(e *collectionEntry) error) error {
	for i := 0; i < len(c.entries); i++ {
		e := c.entries[i]
		if e.deleted {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

type mapData struct{ *collection }
type setData struct{ *collection }

type collectionIterator struct {
	c    *collection
	pos  int
	kind runtime.EnumerableKind
	done bool
}

func createMapConstructor(a *runtime.Agent) *runtime.Object {
	in := a.Intrinsics()
	proto := runtime.NewOrdinaryObject(in.ObjectPrototype)

	setMethod(a, proto, "get", 1, mapGet)
	setMethod(a, proto, "set", 2, mapSet)
	setMethod(a, proto, "has", 1, mapHas)
	setMethod(a, proto, "delete", 1, mapDelete)
	setMethod(a, proto, "clear", 0, mapClear)
	setMethod(a, proto, "forEach", 1, mapForEach)
	setGetter(a, proto, runtime.StringKey("size"), mapSize)
	setMethod(a, proto, "keys", 0, mapIterator(runtime.EnumKeys))
	setMethod(a, proto, "values", 0, mapIterator(runtime.EnumValues))
	entries := setMethod(a, proto, "entries", 0, mapIterator(runtime.EnumEntries))
	runtime.DefineBuiltin(proto, runtime.SymbolKey(runtime.SymIterator), runtime.NewObject(entries))
	setToStringTag(proto, "Map")

	setMethod(a, in.MapIteratorPrototype, "next", 0, collectionIteratorNext)
	setToStringTag(in.MapIteratorPrototype, "Map Iterator")

	ctor := newConstructor(a, "Map", 0, proto, collectionConstructor("Map", proto, func() any { return &mapData{newCollection()} }, "set", true))
	setMethod(a, ctor, "groupBy", 2, mapGroupBy(proto))
	setSpecies(a, ctor)
	return ctor
}

func createSetConstructor(a *runtime.Agent) *runtime.Object {
	in := a.Intrinsics()
	proto := runtime.NewOrdinaryObject(in.ObjectPrototype)

	setMethod(a, proto, "add", 1, setAdd)
	setMethod(a, proto, "has", 1, setHas)
	setMethod(a, proto, "delete", 1, setDelete)
	setMethod(a, proto, "clear", 0, setClear)
	setMethod(a, proto, "forEach", 1, setForEach)
	setGetter(a, proto, runtime.StringKey("size"), setSize)
	setMethod(a, proto, "entries", 0, setIterator(runtime.EnumEntries))
	values := setMethod(a, proto, "values", 0, setIterator(runtime.EnumValues))
	runtime.DefineBuiltin(proto, runtime.StringKey("keys"), runtime.NewObject(values))
	runtime.DefineBuiltin(proto, runtime.SymbolKey(runtime.SymIterator), runtime.NewObject(values))
	setToStringTag(proto, "Set")

	setMethod(a, in.SetIteratorPrototype, "next", 0, collectionIteratorNext)
	setToStringTag(in.SetIteratorPrototype, "Set Iterator")

	ctor := newConstructor(a, "Set", 0, proto, collectionConstructor("Set", proto, func() any { return &setData{newCollection()} }, "add", false))
	setSpecies(a, ctor)
	return ctor
}

// populate feeds an iterable through the adder method of a fresh
// collection, as the Map, Set, WeakMap and WeakSet constructors do.
func populate(a *runtime.Agent, target *runtime.Object, iterable *runtime.Value, adderName string, pairs bool) error {
	if iterable.IsNullish() {
		return nil
	}
	adder, err := target.Get(a, runtime.StringKey(adderName))
	if err != nil {
		return err
	}
	if !adder.IsCallable() {
		return a.ThrowTypeError("'%s' returned for property '%s' of object '%s' is not a function", describe(adder), adderName, target.Class())
	}
	self := runtime.NewObject(target)
	return iterate(a, iterable, func(item *runtime.Value) error {
		if !pairs {
			_, err := a.Call(adder, self, []*runtime.Value{item})
			return err
		}
		if !item.IsObject() {
			return a.ThrowTypeError("Iterator value %s is not an entry object", describe(item))
		}
		k, err := item.Object.Get(a, runtime.IndexKey(0))
		if err != nil {
			return err
		}
		v, err := item.Object.Get(a, runtime.IndexKey(1))
		if err != nil {
			return err
		}
		_, err = a.Call(adder, self, []*runtime.Value{k, v})
		return err
	})
}

// collectionConstructor implements the shared constructor steps: require
// new, allocate the payload, then feed the iterable through the adder.
func collectionConstructor(name string, proto *runtime.Object, payload func() any, adder string, pairs bool) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		nt := a.NewTarget()
		if nt == nil {
			return nil, a.ThrowTypeError("Constructor %s requires 'new'", name)
		}
		o, err := runtime.OrdinaryCreateFromConstructor(a, nt, proto, &runtime.HostData{Value: payload(), Class: name})
		if err != nil {
			return nil, err
		}
		if err := populate(a, o, argAt(args, 0), adder, pairs); err != nil {
			return nil, err
		}
		return runtime.NewObject(o), nil
	}
}

func thisMap(a *runtime.Agent, this *runtime.Value, method string) (*mapData, error) {
	if o := this.AsObject(); o != nil {
		if m, ok := runtime.HostValue[*mapData](o); ok {
			return m, nil
		}
	}
	return nil, a.ThrowTypeError("Method Map.prototype.%s called on incompatible receiver %s", method, describe(this))
}

func thisSet(a *runtime.Agent, this *runtime.Value, method string) (*setData, error) {
	if o := this.AsObject(); o != nil {
		if s, ok := runtime.HostValue[*setData](o); ok {
			return s, nil
		}
	}
	return nil, a.ThrowTypeError("Method Set.prototype.%s called on incompatible receiver %s", method, describe(this))
}

func mapGet(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	m, err := thisMap(a, this, "get")
	if err != nil {
		return nil, err
	}
	if e, ok := m.get(argAt(args, 0)); ok {
		return e.value, nil
	}
	return runtime.Undefined, nil
}

func mapSet(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	m, err := thisMap(a, this, "set")
	if err != nil {
		return nil, err
	}
	m.set(argAt(args, 0), argAt(args, 1))
	return this, nil
}

func mapHas(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	m, err := thisMap(a, this, "has")
	if err != nil {
		return nil, err
	}
	_, ok := m.get(argAt(args, 0))
	return runtime.NewBool(ok), nil
}

func mapDelete(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	m, err := thisMap(a, this, "delete")
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(m.remove(argAt(args, 0))), nil
}

func mapClear(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	m, err := thisMap(a, this, "clear")
	if err != nil {
		return nil, err
	}
	m.clear()
	return runtime.Undefined, nil
}

func mapSize(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	m, err := thisMap(a, this, "size")
	if err != nil {
		return nil, err
	}
	return runtime.NewInt(int64(m.size)), nil
}

func mapForEach(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	m, err := thisMap(a, this, "forEach")
	if err != nil {
		return nil, err
	}
	fn, err := callbackArg(a, args, 0)
	if err != nil {
		return nil, err
	}
	thisArg := argAt(args, 1)
	return runtime.Undefined, m.forEach(func(e *collectionEntry) error {
		_, err := a.Call(fn, thisArg, []*runtime.Value{e.value, e.key, this})
		return err
	})
}

func mapGroupBy(proto *runtime.Object) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		fn, err := callbackArg(a, args, 1)
		if err != nil {
			return nil, err
		}
		c := newCollection()
		k := int64(0)
		err = iterate(a, argAt(args, 0), func(v *runtime.Value) error {
			key, err := a.Call(fn, runtime.Undefined, []*runtime.Value{v, runtime.NewInt(k)})
			if err != nil {
				return err
			}
			k++
			if e, ok := c.get(key); ok {
				_, err := runtime.Invoke(a, e.value, runtime.StringKey("push"), []*runtime.Value{v})
				return err
			}
			c.set(key, a.NewArrayValue([]*runtime.Value{v}))
			return nil
		})
		if err != nil {
			return nil, err
		}
		o := runtime.NewObjectWithData(proto, &runtime.HostData{Value: &mapData{c}, Class: "Map"})
		return runtime.NewObject(o), nil
	}
}

func setAdd(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSet(a, this, "add")
	if err != nil {
		return nil, err
	}
	v := argAt(args, 0)
	if _, ok := s.get(v); !ok {
		s.set(v, v)
	}
	return this, nil
}

func setHas(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSet(a, this, "has")
	if err != nil {
		return nil, err
	}
	_, ok := s.get(argAt(args, 0))
	return runtime.NewBool(ok), nil
}

func setDelete(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSet(a, this, "delete")
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(s.remove(argAt(args, 0))), nil
}

func setClear(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSet(a, this, "clear")
	if err != nil {
		return nil, err
	}
	s.clear()
	return runtime.Undefined, nil
}

func setSize(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSet(a, this, "size")
	if err != nil {
		return nil, err
	}
	return runtime.NewInt(int64(s.size)), nil
}

func setForEach(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSet(a, this, "forEach")
	if err != nil {
		return nil, err
	}
	fn, err := callbackArg(a, args, 0)
	if err != nil {
		return nil, err
	}
	thisArg := argAt(args, 1)
	return runtime.Undefined, s.forEach(func(e *collectionEntry) error {
		_, err := a.Call(fn, thisArg, []*runtime.Value{e.key, e.key, this})
		return err
	})
}

func newCollectionIterator(a *runtime.Agent, proto *runtime.Object, class string, c *collection, kind runtime.EnumerableKind) *runtime.Value {
	it := &collectionIterator{c: c, kind: kind}
	c.iterators.Add(it)
	return runtime.NewObject(runtime.NewHostObject(proto, class, it))
}

func mapIterator(kind runtime.EnumerableKind) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		m, err := thisMap(a, this, "entries")
		if err != nil {
			return nil, err
		}
		return newCollectionIterator(a, a.Intrinsics().MapIteratorPrototype, "Map Iterator", m.collection, kind), nil
	}
}

func setIterator(kind runtime.EnumerableKind) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		s, err := thisSet(a, this, "values")
		if err != nil {
			return nil, err
		}
		return newCollectionIterator(a, a.Intrinsics().SetIteratorPrototype, "Set Iterator", s.collection, kind), nil
	}
}

func collectionIteratorNext(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	var it *collectionIterator
	if o := this.AsObject(); o != nil {
		it, _ = runtime.HostValue[*collectionIterator](o)
	}
	if it == nil {
		return nil, a.ThrowTypeError("next method called on incompatible receiver %s", describe(this))
	}
	for !it.done && it.pos < len(it.c.entries) {
		e := it.c.entries[it.pos]
		it.pos++
		if e.deleted {
			continue
		}
		var v *runtime.Value
		switch it.kind {
		case runtime.EnumKeys:
			v = e.key
		case runtime.EnumValues:
			v = e.value
		default:
			v = a.NewArrayValue([]*runtime.Value{e.key, e.value})
		}
		return runtime.CreateIterResultObject(a, v, false), nil
	}
	if !it.done {
		it.done = true
		it.c.iterators.Remove(it)
	}
	return runtime.CreateIterResultObject(a, runtime.Undefined, true), nil
}

// weakKey reports whether v can be held weakly: an object or a symbol
// outside the registry.
func weakKey(v *runtime.Value) (any, bool) {
	switch {
	case v.IsObject():
		return v.Object, true
	case v.IsSymbol() && !v.Symbol.Registered():
		return v.Symbol, true
	}
	return nil, false
}

// WeakMap and WeakSet hold their keys strongly: Go has no ephemerons, so
// entries live as long as the collection does.
type weakMapData struct{ m map[any]*runtime.Value }
type weakSetData struct{ s mapset.Set[any] }

func createWeakMapConstructor(a *runtime.Agent) *runtime.Object {
	proto := runtime.NewOrdinaryObject(a.Intrinsics().ObjectPrototype)
	setMethod(a, proto, "get", 1, weakMapGet)
	setMethod(a, proto, "set", 2, weakMapSet)
	setMethod(a, proto, "has", 1, weakMapHas)
	setMethod(a, proto, "delete", 1, weakMapDelete)
	setToStringTag(proto, "WeakMap")
	return newConstructor(a, "WeakMap", 0, proto, collectionConstructor("WeakMap", proto, func() any {
		return &weakMapData{m: make(map[any]*runtime.Value)}
	}, "set", true))
}

func createWeakSetConstructor(a *runtime.Agent) *runtime.Object {
	proto := runtime.NewOrdinaryObject(a.Intrinsics().ObjectPrototype)
	setMethod(a, proto, "add", 1, weakSetAdd)
	setMethod(a, proto, "has", 1, weakSetHas)
	setMethod(a, proto, "delete", 1, weakSetDelete)
	setToStringTag(proto, "WeakSet")
	return newConstructor(a, "WeakSet", 0, proto, collectionConstructor("WeakSet", proto, func() any {
		return &weakSetData{s: mapset.NewThreadUnsafeSet[any]()}
	}, "add", false))
}

// withWeakMap runs fn on the receiver's table under a shared borrow.
func withWeakMap(a *runtime.Agent, this *runtime.Value, method string, fn func(w *weakMapData)) error {
	if o := this.AsObject(); o != nil {
		ok, err := runtime.DowncastRef(o, fn)
		if err != nil || ok {
			return err
		}
	}
	return a.ThrowTypeError("Method WeakMap.prototype.%s called on incompatible receiver %s", method, describe(this))
}

func withWeakSet(a *runtime.Agent, this *runtime.Value, method string, fn func(w *weakSetData)) error {
	if o := this.AsObject(); o != nil {
		ok, err := runtime.DowncastRef(o, fn)
		if err != nil || ok {
			return err
		}
	}
	return a.ThrowTypeError("Method WeakSet.prototype.%s called on incompatible receiver %s", method, describe(this))
}

func weakMapGet(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	result := runtime.Undefined
	err := withWeakMap(a, this, "get", func(w *weakMapData) {
		if k, ok := weakKey(argAt(args, 0)); ok {
			if v, ok := w.m[k]; ok {
				result = v
			}
		}
	})
	return result, err
}

func weakMapSet(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	k, ok := weakKey(argAt(args, 0))
	if !ok {
		return nil, a.ThrowTypeError("Invalid value used as weak map key")
	}
	err := withWeakMap(a, this, "set", func(w *weakMapData) { w.m[k] = argAt(args, 1) })
	return this, err
}

func weakMapHas(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	found := false
	err := withWeakMap(a, this, "has", func(w *weakMapData) {
		if k, ok := weakKey(argAt(args, 0)); ok {
			_, found = w.m[k]
		}
	})
	return runtime.NewBool(found), err
}

func weakMapDelete(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	found := false
	err := withWeakMap(a, this, "delete", func(w *weakMapData) {
		if k, ok := weakKey(argAt(args, 0)); ok {
			if _, found = w.m[k]; found {
				delete(w.m, k)
			}
		}
	})
	return runtime.NewBool(found), err
}

func weakSetAdd(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	k, ok := weakKey(argAt(args, 0))
	if !ok {
		return nil, a.ThrowTypeError("Invalid value used in weak set")
	}
	err := withWeakSet(a, this, "add", func(w *weakSetData) { w.s.Add(k) })
	return this, err
}

func weakSetHas(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	found := false
	err := withWeakSet(a, this, "has", func(w *weakSetData) {
		if k, ok := weakKey(argAt(args, 0)); ok {
			found = w.s.Contains(k)
		}
	})
	return runtime.NewBool(found), err
}

func weakSetDelete(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	found := false
	err := withWeakSet(a, this, "delete", func(w *weakSetData) {
		if k, ok := weakKey(argAt(args, 0)); ok {
			if found = w.s.Contains(k); found {
				w.s.Remove(k)
			}
		}
	})
	return runtime.NewBool(found), err
}
