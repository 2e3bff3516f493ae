package builtins

import (
	"math"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/example/jscore/runtime"
)

func createArrayConstructor(a *runtime.Agent) *runtime.Object {
	in := a.Intrinsics()
	proto := in.ArrayPrototype

	setMethod(a, proto, "push", 1, arrayPush)
	setMethod(a, proto, "pop", 0, arrayPop)
	setMethod(a, proto, "shift", 0, arrayShift)
	setMethod(a, proto, "unshift", 1, arrayUnshift)
	setMethod(a, proto, "splice", 2, arraySplice)
	setMethod(a, proto, "slice", 2, arraySlice)
	setMethod(a, proto, "concat", 1, arrayConcat)
	setMethod(a, proto, "at", 1, arrayAt)
	setMethod(a, proto, "indexOf", 1, arrayIndexOf)
	setMethod(a, proto, "lastIndexOf", 1, arrayLastIndexOf)
	setMethod(a, proto, "includes", 1, arrayIncludes)
	setMethod(a, proto, "find", 1, arrayFind(false, false))
	setMethod(a, proto, "findIndex", 1, arrayFind(true, false))
	setMethod(a, proto, "findLast", 1, arrayFind(false, true))
	setMethod(a, proto, "findLastIndex", 1, arrayFind(true, true))
	setMethod(a, proto, "forEach", 1, arrayForEach)
	setMethod(a, proto, "map", 1, arrayMap)
	setMethod(a, proto, "filter", 1, arrayFilter)
	setMethod(a, proto, "reduce", 1, arrayReduce(false))
	setMethod(a, proto, "reduceRight", 1, arrayReduce(true))
	setMethod(a, proto, "every", 1, arrayEvery)
	setMethod(a, proto, "some", 1, arraySome)
	setMethod(a, proto, "sort", 1, arraySort)
	setMethod(a, proto, "toSorted", 1, arrayToSorted)
	setMethod(a, proto, "reverse", 0, arrayReverse)
	setMethod(a, proto, "toReversed", 0, arrayToReversed)
	setMethod(a, proto, "fill", 1, arrayFill)
	setMethod(a, proto, "copyWithin", 2, arrayCopyWithin)
	setMethod(a, proto, "flat", 0, arrayFlat)
	setMethod(a, proto, "flatMap", 1, arrayFlatMap)

	// join and toString share a cycle guard so cyclic arrays render "".
	joining := mapset.NewThreadUnsafeSet[*runtime.Object]()
	setMethod(a, proto, "join", 1, func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		return arrayJoin(a, this, argAt(args, 0), joining)
	})
	setMethod(a, proto, "toString", 0, func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		o, err := this.ToObject(a)
		if err != nil {
			return nil, err
		}
		fn, err := o.Get(a, runtime.StringKey("join"))
		if err != nil {
			return nil, err
		}
		if !fn.IsCallable() {
			return objectProtoToString(a, runtime.NewObject(o), nil)
		}
		return a.Call(fn, runtime.NewObject(o), nil)
	})
	setMethod(a, proto, "toLocaleString", 0, func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		return arrayJoin(a, this, runtime.Undefined, joining)
	})

	setMethod(a, proto, "keys", 0, arrayIteratorMethod(iterKeys))
	values := setMethod(a, proto, "values", 0, arrayIteratorMethod(iterValues))
	setMethod(a, proto, "entries", 0, arrayIteratorMethod(iterEntries))
	runtime.DefineBuiltin(proto, runtime.SymbolKey(runtime.SymIterator), runtime.NewObject(values))
	in.ArrayValues = values

	unscopables := runtime.NewOrdinaryObject(nil)
	for _, name := range []string{"at", "copyWithin", "entries", "fill", "find", "findIndex", "findLast", "findLastIndex", "flat", "flatMap", "includes", "keys", "toReversed", "toSorted", "values"} {
		runtime.DefineRaw(unscopables, runtime.StringKey(name), runtime.True, runtime.AttrAll)
	}
	runtime.DefineRaw(proto, runtime.SymbolKey(runtime.SymUnscopables), runtime.NewObject(unscopables), runtime.AttrConfigurable)

	setMethod(a, in.ArrayIteratorPrototype, "next", 0, arrayIteratorNext)
	setToStringTag(in.ArrayIteratorPrototype, "Array Iterator")

	ctor := newConstructor(a, "Array", 1, proto, arrayConstructorCall)
	setMethod(a, ctor, "isArray", 1, arrayIsArray)
	setMethod(a, ctor, "from", 1, arrayFrom)
	setMethod(a, ctor, "of", 0, arrayOf)
	setSpecies(a, ctor)
	return ctor
}

func arrayConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	proto := a.Intrinsics().ArrayPrototype
	if nt := a.NewTarget(); nt != nil {
		var err error
		if proto, err = runtime.GetPrototypeFromConstructor(a, nt, proto); err != nil {
			return nil, err
		}
	}
	if len(args) == 1 && args[0].IsNumber() {
		n := args[0].Float()
		if n < 0 || n != math.Trunc(n) || n > math.MaxUint32 {
			return nil, a.ThrowRangeError("Invalid array length")
		}
		arr, err := a.ArrayCreate(uint64(n), proto)
		if err != nil {
			return nil, err
		}
		return runtime.NewObject(arr), nil
	}
	arr := a.NewArray(args)
	if proto != a.Intrinsics().ArrayPrototype {
		if _, err := arr.SetPrototypeOf(a, proto); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(arr), nil
}

// arraySpeciesCreate creates the result array of map, filter, slice and
// friends through original.constructor[@@species].
func arraySpeciesCreate(a *runtime.Agent, original *runtime.Object, length int64) (*runtime.Object, error) {
	isArray, err := runtime.IsArray(a, runtime.NewObject(original))
	if err != nil {
		return nil, err
	}
	if !isArray {
		return a.ArrayCreate(uint64(length), nil)
	}
	c, err := original.Get(a, runtime.StringKey("constructor"))
	if err != nil {
		return nil, err
	}
	if c.IsObject() {
		if c, err = c.Object.Get(a, runtime.SymbolKey(runtime.SymSpecies)); err != nil {
			return nil, err
		}
		if c.IsNull() {
			c = runtime.Undefined
		}
	}
	if c.IsUndefined() {
		return a.ArrayCreate(uint64(length), nil)
	}
	if !c.IsConstructor() {
		return nil, a.ThrowTypeError("object.constructor[Symbol.species] is not a constructor")
	}
	return a.Construct(c, []*runtime.Value{numberValue(length)}, nil)
}

// thisArrayLike coerces the receiver and reads its length.
func thisArrayLike(a *runtime.Agent, this *runtime.Value) (*runtime.Object, int64, error) {
	o, err := this.ToObject(a)
	if err != nil {
		return nil, 0, err
	}
	n, err := runtime.LengthOfArrayLike(a, o)
	if err != nil {
		return nil, 0, err
	}
	return o, n, nil
}

func setLength(a *runtime.Agent, o *runtime.Object, n int64) error {
	return o.Set(a, runtime.StringKey("length"), numberValue(n), true)
}

func arrayPush(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	if n+int64(len(args)) > 1<<53-1 {
		return nil, a.ThrowTypeError("Pushing %d elements on an array-like of length %d is disallowed", len(args), n)
	}
	for _, v := range args {
		if err := o.Set(a, runtime.IntKey(n), v, true); err != nil {
			return nil, err
		}
		n++
	}
	if err := setLength(a, o, n); err != nil {
		return nil, err
	}
	return numberValue(n), nil
}

func arrayPop(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return runtime.Undefined, setLength(a, o, 0)
	}
	key := runtime.IntKey(n - 1)
	v, err := o.Get(a, key)
	if err != nil {
		return nil, err
	}
	if err := runtime.DeletePropertyOrThrow(a, o, key); err != nil {
		return nil, err
	}
	return v, setLength(a, o, n-1)
}

func arrayShift(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return runtime.Undefined, setLength(a, o, 0)
	}
	first, err := o.Get(a, runtime.IndexKey(0))
	if err != nil {
		return nil, err
	}
	if err := moveElements(a, o, 1, 0, n-1); err != nil {
		return nil, err
	}
	if err := runtime.DeletePropertyOrThrow(a, o, runtime.IntKey(n-1)); err != nil {
		return nil, err
	}
	return first, setLength(a, o, n-1)
}

func arrayUnshift(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	count := int64(len(args))
	if count > 0 {
		if n+count > 1<<53-1 {
			return nil, a.ThrowTypeError("Invalid array length")
		}
		if err := moveElements(a, o, 0, count, n); err != nil {
			return nil, err
		}
		for i, v := range args {
			if err := o.Set(a, runtime.IntKey(int64(i)), v, true); err != nil {
				return nil, err
			}
		}
	}
	if err := setLength(a, o, n+count); err != nil {
		return nil, err
	}
	return numberValue(n + count), nil
}

// moveElements copies count elements from index from to index to,
// deleting holes, iterating in the direction that keeps sources intact.
func moveElements(a *runtime.Agent, o *runtime.Object, from, to, count int64) error {
	move := func(i int64) error {
		src, dst := runtime.IntKey(from+i), runtime.IntKey(to+i)
		has, err := o.HasProperty(a, src)
		if err != nil {
			return err
		}
		if !has {
			return runtime.DeletePropertyOrThrow(a, o, dst)
		}
		v, err := o.Get(a, src)
		if err != nil {
			return err
		}
		return o.Set(a, dst, v, true)
	}
	if from < to {
		for i := count - 1; i >= 0; i-- {
			if err := move(i); err != nil {
				return err
			}
		}
		return nil
	}
	for i := int64(0); i < count; i++ {
		if err := move(i); err != nil {
			return err
		}
	}
	return nil
}

func arraySplice(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	start, err := relativeIndex(a, argAt(args, 0), n, 0)
	if err != nil {
		return nil, err
	}
	var deleteCount int64
	switch len(args) {
	case 0:
	case 1:
		deleteCount = n - start
	default:
		dc, err := args[1].ToIntegerOrInfinity(a)
		if err != nil {
			return nil, err
		}
		deleteCount = int64(math.Min(math.Max(dc, 0), float64(n-start)))
	}
	var items []*runtime.Value
	if len(args) > 2 {
		items = args[2:]
	}
	itemCount := int64(len(items))

	removed, err := arraySpeciesCreate(a, o, deleteCount)
	if err != nil {
		return nil, err
	}
	for k := int64(0); k < deleteCount; k++ {
		from := runtime.IntKey(start + k)
		has, err := o.HasProperty(a, from)
		if err != nil {
			return nil, err
		}
		if has {
			v, err := o.Get(a, from)
			if err != nil {
				return nil, err
			}
			if err := runtime.CreateDataPropertyOrThrow(a, removed, runtime.IntKey(k), v); err != nil {
				return nil, err
			}
		}
	}
	if err := setLength(a, removed, deleteCount); err != nil {
		return nil, err
	}

	tail := n - start - deleteCount
	if itemCount != deleteCount {
		if err := moveElements(a, o, start+deleteCount, start+itemCount, tail); err != nil {
			return nil, err
		}
	}
	if itemCount < deleteCount {
		for k := n; k > n-deleteCount+itemCount; k-- {
			if err := runtime.DeletePropertyOrThrow(a, o, runtime.IntKey(k-1)); err != nil {
				return nil, err
			}
		}
	}
	for i, v := range items {
		if err := o.Set(a, runtime.IntKey(start+int64(i)), v, true); err != nil {
			return nil, err
		}
	}
	if err := setLength(a, o, n-deleteCount+itemCount); err != nil {
		return nil, err
	}
	return runtime.NewObject(removed), nil
}

func arraySlice(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	start, err := relativeIndex(a, argAt(args, 0), n, 0)
	if err != nil {
		return nil, err
	}
	end, err := relativeIndex(a, argAt(args, 1), n, n)
	if err != nil {
		return nil, err
	}
	count := max(end-start, 0)
	out, err := arraySpeciesCreate(a, o, count)
	if err != nil {
		return nil, err
	}
	var i int64
	for k := start; k < end; k++ {
		key := runtime.IntKey(k)
		has, err := o.HasProperty(a, key)
		if err != nil {
			return nil, err
		}
		if has {
			v, err := o.Get(a, key)
			if err != nil {
				return nil, err
			}
			if err := runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(i), v); err != nil {
				return nil, err
			}
		}
		i++
	}
	if err := setLength(a, out, i); err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

func isConcatSpreadable(a *runtime.Agent, v *runtime.Value) (bool, error) {
	if !v.IsObject() {
		return false, nil
	}
	s, err := v.Object.Get(a, runtime.SymbolKey(runtime.SymIsConcatSpreadable))
	if err != nil {
		return false, err
	}
	if !s.IsUndefined() {
		return s.ToBoolean(), nil
	}
	return runtime.IsArray(a, v)
}

func arrayConcat(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	out, err := arraySpeciesCreate(a, o, 0)
	if err != nil {
		return nil, err
	}
	var n int64
	for _, item := range append([]*runtime.Value{runtime.NewObject(o)}, args...) {
		spread, err := isConcatSpreadable(a, item)
		if err != nil {
			return nil, err
		}
		if !spread {
			if err := runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(n), item); err != nil {
				return nil, err
			}
			n++
			continue
		}
		length, err := runtime.LengthOfArrayLike(a, item.Object)
		if err != nil {
			return nil, err
		}
		for k := int64(0); k < length; k++ {
			key := runtime.IntKey(k)
			has, err := item.Object.HasProperty(a, key)
			if err != nil {
				return nil, err
			}
			if has {
				v, err := item.Object.Get(a, key)
				if err != nil {
					return nil, err
				}
				if err := runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(n), v); err != nil {
					return nil, err
				}
			}
			n++
		}
	}
	if err := setLength(a, out, n); err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

func arrayAt(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	rel, err := argAt(args, 0).ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	if rel < 0 {
		rel += float64(n)
	}
	if rel < 0 || rel >= float64(n) {
		return runtime.Undefined, nil
	}
	return o.Get(a, runtime.IntKey(int64(rel)))
}

func arrayIndexOf(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return runtime.NewInt(-1), nil
	}
	start, err := relativeIndex(a, argAt(args, 1), n, 0)
	if err != nil {
		return nil, err
	}
	target := argAt(args, 0)
	for k := start; k < n; k++ {
		key := runtime.IntKey(k)
		has, err := o.HasProperty(a, key)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		v, err := o.Get(a, key)
		if err != nil {
			return nil, err
		}
		if runtime.StrictEquals(v, target) {
			return numberValue(k), nil
		}
	}
	return runtime.NewInt(-1), nil
}

func arrayLastIndexOf(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return runtime.NewInt(-1), nil
	}
	from := n - 1
	if len(args) > 1 {
		rel, err := args[1].ToIntegerOrInfinity(a)
		if err != nil {
			return nil, err
		}
		if rel < 0 {
			rel += float64(n)
		}
		from = int64(math.Min(rel, float64(n-1)))
	}
	target := argAt(args, 0)
	for k := from; k >= 0; k-- {
		key := runtime.IntKey(k)
		has, err := o.HasProperty(a, key)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		v, err := o.Get(a, key)
		if err != nil {
			return nil, err
		}
		if runtime.StrictEquals(v, target) {
			return numberValue(k), nil
		}
	}
	return runtime.NewInt(-1), nil
}

func arrayIncludes(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return runtime.False, nil
	}
	start, err := relativeIndex(a, argAt(args, 1), n, 0)
	if err != nil {
		return nil, err
	}
	target := argAt(args, 0)
	for k := start; k < n; k++ {
		v, err := o.Get(a, runtime.IntKey(k))
		if err != nil {
			return nil, err
		}
		if runtime.SameValueZero(v, target) {
			return runtime.True, nil
		}
	}
	return runtime.False, nil
}

// arrayFind implements find, findIndex, findLast and findLastIndex.
func arrayFind(index, fromEnd bool) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		o, n, err := thisArrayLike(a, this)
		if err != nil {
			return nil, err
		}
		pred, err := callbackArg(a, args, 0)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < n; i++ {
			k := i
			if fromEnd {
				k = n - 1 - i
			}
			v, err := o.Get(a, runtime.IntKey(k))
			if err != nil {
				return nil, err
			}
			ok, err := a.Call(pred, argAt(args, 1), []*runtime.Value{v, numberValue(k), runtime.NewObject(o)})
			if err != nil {
				return nil, err
			}
			if ok.ToBoolean() {
				if index {
					return numberValue(k), nil
				}
				return v, nil
			}
		}
		if index {
			return runtime.NewInt(-1), nil
		}
		return runtime.Undefined, nil
	}
}

// eachPresent calls fn for every present element in ascending order.
func eachPresent(a *runtime.Agent, o *runtime.Object, n int64, fn func(k int64, v *runtime.Value) (bool, error)) error {
	for k := int64(0); k < n; k++ {
		key := runtime.IntKey(k)
		has, err := o.HasProperty(a, key)
		if err != nil {
			return err
		}
		if !has {
			continue
		}
		v, err := o.Get(a, key)
		if err != nil {
			return err
		}
		cont, err := fn(k, v)
		if err != nil || !cont {
			return err
		}
	}
	return nil
}

func arrayForEach(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	fn, err := callbackArg(a, args, 0)
	if err != nil {
		return nil, err
	}
	err = eachPresent(a, o, n, func(k int64, v *runtime.Value) (bool, error) {
		_, err := a.Call(fn, argAt(args, 1), []*runtime.Value{v, numberValue(k), runtime.NewObject(o)})
		return true, err
	})
	return runtime.Undefined, err
}

func arrayMap(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	fn, err := callbackArg(a, args, 0)
	if err != nil {
		return nil, err
	}
	out, err := arraySpeciesCreate(a, o, n)
	if err != nil {
		return nil, err
	}
	err = eachPresent(a, o, n, func(k int64, v *runtime.Value) (bool, error) {
		mapped, err := a.Call(fn, argAt(args, 1), []*runtime.Value{v, numberValue(k), runtime.NewObject(o)})
		if err != nil {
			return false, err
		}
		return true, runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(k), mapped)
	})
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

func arrayFilter(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	fn, err := callbackArg(a, args, 0)
	if err != nil {
		return nil, err
	}
	out, err := arraySpeciesCreate(a, o, 0)
	if err != nil {
		return nil, err
	}
	var to int64
	err = eachPresent(a, o, n, func(k int64, v *runtime.Value) (bool, error) {
		keep, err := a.Call(fn, argAt(args, 1), []*runtime.Value{v, numberValue(k), runtime.NewObject(o)})
		if err != nil {
			return false, err
		}
		if keep.ToBoolean() {
			if err := runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(to), v); err != nil {
				return false, err
			}
			to++
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

func arrayReduce(fromEnd bool) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		o, n, err := thisArrayLike(a, this)
		if err != nil {
			return nil, err
		}
		fn, err := callbackArg(a, args, 0)
		if err != nil {
			return nil, err
		}
		index := func(i int64) int64 {
			if fromEnd {
				return n - 1 - i
			}
			return i
		}
		var acc *runtime.Value
		i := int64(0)
		if len(args) > 1 {
			acc = args[1]
		} else {
			for ; i < n && acc == nil; i++ {
				key := runtime.IntKey(index(i))
				has, err := o.HasProperty(a, key)
				if err != nil {
					return nil, err
				}
				if has {
					if acc, err = o.Get(a, key); err != nil {
						return nil, err
					}
				}
			}
			if acc == nil {
				return nil, a.ThrowTypeError("Reduce of empty array with no initial value")
			}
		}
		for ; i < n; i++ {
			k := index(i)
			key := runtime.IntKey(k)
			has, err := o.HasProperty(a, key)
			if err != nil {
				return nil, err
			}
			if !has {
				continue
			}
			v, err := o.Get(a, key)
			if err != nil {
				return nil, err
			}
			if acc, err = a.Call(fn, runtime.Undefined, []*runtime.Value{acc, v, numberValue(k), runtime.NewObject(o)}); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}
}

func arrayEvery(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return arrayTest(a, this, args, false)
}

func arraySome(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return arrayTest(a, this, args, true)
}

// arrayTest stops at the first callback result equal to stopOn.
func arrayTest(a *runtime.Agent, this *runtime.Value, args []*runtime.Value, stopOn bool) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	fn, err := callbackArg(a, args, 0)
	if err != nil {
		return nil, err
	}
	found := false
	err = eachPresent(a, o, n, func(k int64, v *runtime.Value) (bool, error) {
		r, err := a.Call(fn, argAt(args, 1), []*runtime.Value{v, numberValue(k), runtime.NewObject(o)})
		if err != nil {
			return false, err
		}
		if r.ToBoolean() == stopOn {
			found = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(found == stopOn), nil
}

// sortValues sorts vals with the comparator semantics of
// Array.prototype.sort; undefined sorts last.
func sortValues(a *runtime.Agent, vals []*runtime.Value, cmp *runtime.Value) error {
	var defined, undefs []*runtime.Value
	for _, v := range vals {
		if v.IsUndefined() {
			undefs = append(undefs, v)
		} else {
			defined = append(defined, v)
		}
	}
	var sortErr error
	slices.SortStableFunc(defined, func(x, y *runtime.Value) int {
		if sortErr != nil {
			return 0
		}
		if !cmp.IsUndefined() {
			r, err := a.Call(cmp, runtime.Undefined, []*runtime.Value{x, y})
			if err != nil {
				sortErr = err
				return 0
			}
			n, err := r.ToNumber(a)
			if err != nil {
				sortErr = err
				return 0
			}
			switch {
			case n < 0:
				return -1
			case n > 0:
				return 1
			}
			return 0
		}
		xs, err := x.ToString(a)
		if err != nil {
			sortErr = err
			return 0
		}
		ys, err := y.ToString(a)
		if err != nil {
			sortErr = err
			return 0
		}
		return compareCodeUnits(xs, ys)
	})
	if sortErr != nil {
		return sortErr
	}
	copy(vals, defined)
	copy(vals[len(defined):], undefs)
	return nil
}

// compareCodeUnits orders strings by UTF-16 code units.
func compareCodeUnits(x, y string) int {
	return slices.Compare(runtime.UTF16Units(x), runtime.UTF16Units(y))
}

func sortComparator(a *runtime.Agent, args []*runtime.Value) (*runtime.Value, error) {
	cmp := argAt(args, 0)
	if !cmp.IsUndefined() && !cmp.IsCallable() {
		return nil, a.ThrowTypeError("The comparison function must be either a function or undefined")
	}
	return cmp, nil
}

func arraySort(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	cmp, err := sortComparator(a, args)
	if err != nil {
		return nil, err
	}
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	var vals []*runtime.Value
	err = eachPresent(a, o, n, func(_ int64, v *runtime.Value) (bool, error) {
		vals = append(vals, v)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if err := sortValues(a, vals, cmp); err != nil {
		return nil, err
	}
	for i, v := range vals {
		if err := o.Set(a, runtime.IntKey(int64(i)), v, true); err != nil {
			return nil, err
		}
	}
	for k := int64(len(vals)); k < n; k++ {
		if err := runtime.DeletePropertyOrThrow(a, o, runtime.IntKey(k)); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(o), nil
}

// arrayValuesOf reads every element, holes included, as undefined.
func arrayValuesOf(a *runtime.Agent, o *runtime.Object, n int64) ([]*runtime.Value, error) {
	vals := make([]*runtime.Value, 0, n)
	for k := int64(0); k < n; k++ {
		v, err := o.Get(a, runtime.IntKey(k))
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func arrayToSorted(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	cmp, err := sortComparator(a, args)
	if err != nil {
		return nil, err
	}
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	vals, err := arrayValuesOf(a, o, n)
	if err != nil {
		return nil, err
	}
	if err := sortValues(a, vals, cmp); err != nil {
		return nil, err
	}
	return a.NewArrayValue(vals), nil
}

func arrayReverse(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	for lower := int64(0); lower < n/2; lower++ {
		lk, uk := runtime.IntKey(lower), runtime.IntKey(n-1-lower)
		lHas, err := o.HasProperty(a, lk)
		if err != nil {
			return nil, err
		}
		var lv, uv *runtime.Value
		if lHas {
			if lv, err = o.Get(a, lk); err != nil {
				return nil, err
			}
		}
		uHas, err := o.HasProperty(a, uk)
		if err != nil {
			return nil, err
		}
		if uHas {
			if uv, err = o.Get(a, uk); err != nil {
				return nil, err
			}
		}
		if uHas {
			err = o.Set(a, lk, uv, true)
		} else {
			err = runtime.DeletePropertyOrThrow(a, o, lk)
		}
		if err != nil {
			return nil, err
		}
		if lHas {
			err = o.Set(a, uk, lv, true)
		} else {
			err = runtime.DeletePropertyOrThrow(a, o, uk)
		}
		if err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(o), nil
}

func arrayToReversed(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	vals, err := arrayValuesOf(a, o, n)
	if err != nil {
		return nil, err
	}
	slices.Reverse(vals)
	return a.NewArrayValue(vals), nil
}

func arrayFill(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	start, err := relativeIndex(a, argAt(args, 1), n, 0)
	if err != nil {
		return nil, err
	}
	end, err := relativeIndex(a, argAt(args, 2), n, n)
	if err != nil {
		return nil, err
	}
	for k := start; k < end; k++ {
		if err := o.Set(a, runtime.IntKey(k), argAt(args, 0), true); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(o), nil
}

func arrayCopyWithin(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	to, err := relativeIndex(a, argAt(args, 0), n, 0)
	if err != nil {
		return nil, err
	}
	from, err := relativeIndex(a, argAt(args, 1), n, 0)
	if err != nil {
		return nil, err
	}
	end, err := relativeIndex(a, argAt(args, 2), n, n)
	if err != nil {
		return nil, err
	}
	count := min(end-from, n-to)
	if count > 0 {
		if err := moveElements(a, o, from, to, count); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(o), nil
}

func arrayJoin(a *runtime.Agent, this *runtime.Value, separator *runtime.Value, joining mapset.Set[*runtime.Object]) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	sep := ","
	if !separator.IsUndefined() {
		if sep, err = separator.ToString(a); err != nil {
			return nil, err
		}
	}
	if !joining.Add(o) {
		return runtime.EmptyString, nil
	}
	defer joining.Remove(o)

	var sb strings.Builder
	for k := int64(0); k < n; k++ {
		if k > 0 {
			sb.WriteString(sep)
		}
		v, err := o.Get(a, runtime.IntKey(k))
		if err != nil {
			return nil, err
		}
		if v.IsNullish() {
			continue
		}
		s, err := v.ToString(a)
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
	}
	return runtime.NewString(sb.String()), nil
}

func flattenInto(a *runtime.Agent, target, source *runtime.Object, sourceLen, start int64, depth float64, mapper, thisArg *runtime.Value) (int64, error) {
	to := start
	for k := int64(0); k < sourceLen; k++ {
		key := runtime.IntKey(k)
		has, err := source.HasProperty(a, key)
		if err != nil {
			return 0, err
		}
		if !has {
			continue
		}
		el, err := source.Get(a, key)
		if err != nil {
			return 0, err
		}
		if mapper != nil {
			if el, err = a.Call(mapper, thisArg, []*runtime.Value{el, numberValue(k), runtime.NewObject(source)}); err != nil {
				return 0, err
			}
		}
		if depth > 0 {
			isArray, err := runtime.IsArray(a, el)
			if err != nil {
				return 0, err
			}
			if isArray {
				n, err := runtime.LengthOfArrayLike(a, el.Object)
				if err != nil {
					return 0, err
				}
				if to, err = flattenInto(a, target, el.Object, n, to, depth-1, nil, nil); err != nil {
					return 0, err
				}
				continue
			}
		}
		if err := runtime.CreateDataPropertyOrThrow(a, target, runtime.IntKey(to), el); err != nil {
			return 0, err
		}
		to++
	}
	return to, nil
}

func arrayFlat(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	depth := 1.0
	if d := argAt(args, 0); !d.IsUndefined() {
		if depth, err = d.ToIntegerOrInfinity(a); err != nil {
			return nil, err
		}
	}
	out, err := arraySpeciesCreate(a, o, 0)
	if err != nil {
		return nil, err
	}
	if _, err := flattenInto(a, out, o, n, 0, depth, nil, nil); err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

func arrayFlatMap(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, n, err := thisArrayLike(a, this)
	if err != nil {
		return nil, err
	}
	fn, err := callbackArg(a, args, 0)
	if err != nil {
		return nil, err
	}
	out, err := arraySpeciesCreate(a, o, 0)
	if err != nil {
		return nil, err
	}
	if _, err := flattenInto(a, out, o, n, 0, 1, fn, argAt(args, 1)); err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

func arrayIsArray(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	ok, err := runtime.IsArray(a, argAt(args, 0))
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(ok), nil
}

// newArrayFrom constructs the result of Array.from and Array.of through
// this when it is a constructor.
func newArrayFrom(a *runtime.Agent, this *runtime.Value, length *runtime.Value) (*runtime.Object, error) {
	if this.IsConstructor() && this.Object != a.Intrinsics().Array {
		var args []*runtime.Value
		if length != nil {
			args = []*runtime.Value{length}
		}
		return a.Construct(this, args, nil)
	}
	n := uint64(0)
	if length != nil {
		n = uint64(length.Float())
	}
	return a.ArrayCreate(n, nil)
}

func arrayFrom(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	items := argAt(args, 0)
	mapFn := argAt(args, 1)
	if !mapFn.IsUndefined() && !mapFn.IsCallable() {
		return nil, a.ThrowTypeError("%s is not a function", describe(mapFn))
	}
	mapValue := func(v *runtime.Value, k int64) (*runtime.Value, error) {
		if mapFn.IsUndefined() {
			return v, nil
		}
		return a.Call(mapFn, argAt(args, 2), []*runtime.Value{v, numberValue(k)})
	}

	usingIterator, err := runtime.GetMethod(a, items, runtime.SymbolKey(runtime.SymIterator))
	if err != nil {
		return nil, err
	}
	if usingIterator != nil {
		out, err := newArrayFrom(a, this, nil)
		if err != nil {
			return nil, err
		}
		rec, err := runtime.GetIteratorFromMethod(a, items, usingIterator)
		if err != nil {
			return nil, err
		}
		var k int64
		for {
			next, ok, err := rec.Step(a)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			v, err := mapValue(next, k)
			if err == nil {
				err = runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(k), v)
			}
			if err != nil {
				return nil, rec.Close(a, err)
			}
			k++
		}
		if err := setLength(a, out, k); err != nil {
			return nil, err
		}
		return runtime.NewObject(out), nil
	}

	src, err := items.ToObject(a)
	if err != nil {
		return nil, err
	}
	n, err := runtime.LengthOfArrayLike(a, src)
	if err != nil {
		return nil, err
	}
	out, err := newArrayFrom(a, this, numberValue(n))
	if err != nil {
		return nil, err
	}
	for k := int64(0); k < n; k++ {
		v, err := src.Get(a, runtime.IntKey(k))
		if err != nil {
			return nil, err
		}
		if v, err = mapValue(v, k); err != nil {
			return nil, err
		}
		if err := runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(k), v); err != nil {
			return nil, err
		}
	}
	if err := setLength(a, out, n); err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

func arrayOf(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	out, err := newArrayFrom(a, this, numberValue(int64(len(args))))
	if err != nil {
		return nil, err
	}
	for i, v := range args {
		if err := runtime.CreateDataPropertyOrThrow(a, out, runtime.IntKey(int64(i)), v); err != nil {
			return nil, err
		}
	}
	if err := setLength(a, out, int64(len(args))); err != nil {
		return nil, err
	}
	return runtime.NewObject(out), nil
}

type iterKind int

const (
	iterKeys iterKind = iota
	iterValues
	iterEntries
)

// arrayIterator is the state of an %ArrayIteratorPrototype% instance. The
// length is re-read on every step so iterators observe growth.
type arrayIterator struct {
	target *runtime.Object
	index  int64
	kind   iterKind
	done   bool
}

func arrayIteratorMethod(kind iterKind) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		o, err := this.ToObject(a)
		if err != nil {
			return nil, err
		}
		it := runtime.NewHostObject(a.Intrinsics().ArrayIteratorPrototype, "Array Iterator", &arrayIterator{target: o, kind: kind})
		return runtime.NewObject(it), nil
	}
}

func arrayIteratorNext(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	var it *arrayIterator
	if o := this.AsObject(); o != nil {
		it, _ = runtime.HostValue[*arrayIterator](o)
	}
	if it == nil {
		return nil, a.ThrowTypeError("next method called on incompatible receiver %s", describe(this))
	}
	if it.done {
		return runtime.CreateIterResultObject(a, runtime.Undefined, true), nil
	}
	n, err := runtime.LengthOfArrayLike(a, it.target)
	if err != nil {
		return nil, err
	}
	if it.index >= n {
		it.done = true
		return runtime.CreateIterResultObject(a, runtime.Undefined, true), nil
	}
	k := it.index
	it.index++
	if it.kind == iterKeys {
		return runtime.CreateIterResultObject(a, numberValue(k), false), nil
	}
	v, err := it.target.Get(a, runtime.IntKey(k))
	if err != nil {
		return nil, err
	}
	if it.kind == iterEntries {
		v = a.NewArrayValue([]*runtime.Value{numberValue(k), v})
	}
	return runtime.CreateIterResultObject(a, v, false), nil
}
