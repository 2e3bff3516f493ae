package builtins

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/example/jscore/runtime"
)

const (
	msPerDay    = 86400000
	maxTimeClip = 8.64e15
)

// Date components in the order the constructor and setters take them.
const (
	fieldYear = iota
	fieldMonth
	fieldDate
	fieldHours
	fieldMinutes
	fieldSeconds
	fieldMillis
	fieldWeekday
)

var dateGetters = []struct {
	name  string
	field int
}{
	{"FullYear", fieldYear},
	{"Month", fieldMonth},
	{"Date", fieldDate},
	{"Day", fieldWeekday},
	{"Hours", fieldHours},
	{"Minutes", fieldMinutes},
	{"Seconds", fieldSeconds},
	{"Milliseconds", fieldMillis},
}

var dateSetters = []struct {
	name    string
	first   int
	maxArgs int
}{
	{"FullYear", fieldYear, 3},
	{"Month", fieldMonth, 2},
	{"Date", fieldDate, 1},
	{"Hours", fieldHours, 4},
	{"Minutes", fieldMinutes, 3},
	{"Seconds", fieldSeconds, 2},
	{"Milliseconds", fieldMillis, 1},
}

func createDateConstructor(a *runtime.Agent) *runtime.Object {
	proto := runtime.NewOrdinaryObject(a.Intrinsics().ObjectPrototype)

	ctor := newConstructor(a, "Date", 7, proto, func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		return dateConstruct(a, proto, args)
	})
	setMethod(a, ctor, "now", 0, dateNow)
	setMethod(a, ctor, "parse", 1, dateParse)
	setMethod(a, ctor, "UTC", 7, dateUTC)

	setMethod(a, proto, "getTime", 0, dateValueOf)
	setMethod(a, proto, "valueOf", 0, dateValueOf)
	setMethod(a, proto, "getTimezoneOffset", 0, dateGetTimezoneOffset)
	for _, g := range dateGetters {
		setMethod(a, proto, "get"+g.name, 0, dateGetter("get"+g.name, g.field, false))
		setMethod(a, proto, "getUTC"+g.name, 0, dateGetter("getUTC"+g.name, g.field, true))
	}
	setMethod(a, proto, "setTime", 1, dateSetTime)
	for _, s := range dateSetters {
		setMethod(a, proto, "set"+s.name, s.maxArgs, dateSetter("set"+s.name, s.first, s.maxArgs, false))
		setMethod(a, proto, "setUTC"+s.name, s.maxArgs, dateSetter("setUTC"+s.name, s.first, s.maxArgs, true))
	}

	setMethod(a, proto, "toString", 0, dateFormatter(formatDateTime))
	setMethod(a, proto, "toDateString", 0, dateFormatter(func(t time.Time) string { return t.Format("Mon Jan 02 2006") }))
	setMethod(a, proto, "toTimeString", 0, dateFormatter(func(t time.Time) string { return t.Format("15:04:05 GMT-0700 (MST)") }))
	setMethod(a, proto, "toLocaleString", 0, dateFormatter(func(t time.Time) string { return t.Format("1/2/2006, 3:04:05 PM") }))
	setMethod(a, proto, "toLocaleDateString", 0, dateFormatter(func(t time.Time) string { return t.Format("1/2/2006") }))
	setMethod(a, proto, "toLocaleTimeString", 0, dateFormatter(func(t time.Time) string { return t.Format("3:04:05 PM") }))
	utcString := setMethod(a, proto, "toUTCString", 0, dateToUTCString)
	setMethod(a, proto, "toISOString", 0, dateToISOString)
	setMethod(a, proto, "toJSON", 1, dateToJSON)

	setMethod(a, proto, "getYear", 0, dateGetYear)
	setMethod(a, proto, "setYear", 1, dateSetYear)
	runtime.DefineBuiltin(proto, runtime.StringKey("toGMTString"), runtime.NewObject(utcString))

	toPrim := a.NewNativeFunction("[Symbol.toPrimitive]", 1, dateToPrimitive)
	runtime.DefineRaw(proto, runtime.SymbolKey(runtime.SymToPrimitive), runtime.NewObject(toPrim), runtime.AttrConfigurable)
	return ctor
}

func dateConstruct(a *runtime.Agent, proto *runtime.Object, args []*runtime.Value) (*runtime.Value, error) {
	nt := a.NewTarget()
	if nt == nil {
		return runtime.NewString(formatTimeValue(nowMillis(), formatDateTime)), nil
	}
	var tv float64
	switch len(args) {
	case 0:
		tv = nowMillis()
	case 1:
		if o := args[0].AsObject(); o != nil && o.Kind() == runtime.KindDate {
			tv = o.Data().(*runtime.PrimitiveData).Value.Float()
			break
		}
		prim, err := args[0].ToPrimitive(a, runtime.HintDefault)
		if err != nil {
			return nil, err
		}
		if prim.IsString() {
			tv = parseDate(prim.Str)
		} else if tv, err = prim.ToNumber(a); err != nil {
			return nil, err
		}
	default:
		comps, err := dateComponentArgs(a, args)
		if err != nil {
			return nil, err
		}
		tv = utcFromLocal(makeDateFromFields(comps))
	}
	obj, err := runtime.OrdinaryCreateFromConstructor(a, nt, proto, runtime.NewPrimitiveData(runtime.KindDate, runtime.NewNumber(timeClip(tv))))
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(obj), nil
}

// dateComponentArgs coerces (year, month[, date, hours, minutes, seconds, ms])
// and applies the two-digit year rule.
func dateComponentArgs(a *runtime.Agent, args []*runtime.Value) ([7]float64, error) {
	comps := [7]float64{math.NaN(), 0, 1, 0, 0, 0, 0}
	for i := 0; i < len(args) && i < 7; i++ {
		n, err := args[i].ToNumber(a)
		if err != nil {
			return comps, err
		}
		comps[i] = n
	}
	if y := comps[fieldYear]; !math.IsNaN(y) {
		if yi := runtime.IntegerOrInfinity(y); yi >= 0 && yi <= 99 {
			comps[fieldYear] = 1900 + yi
		}
	}
	return comps, nil
}

func nowMillis() float64 {
	return float64(time.Now().UnixMilli())
}

func dateNow(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
	return runtime.NewNumber(nowMillis()), nil
}

func dateParse(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewNumber(parseDate(s)), nil
}

func dateUTC(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	comps, err := dateComponentArgs(a, args)
	if err != nil {
		return nil, err
	}
	return runtime.NewNumber(timeClip(makeDateFromFields(comps))), nil
}

// thisTimeValue returns the time value of a Date receiver.
func thisTimeValue(a *runtime.Agent, this *runtime.Value, method string) (*runtime.Object, float64, error) {
	if o := this.AsObject(); o != nil && o.Kind() == runtime.KindDate {
		return o, o.Data().(*runtime.PrimitiveData).Value.Float(), nil
	}
	return nil, 0, a.ThrowTypeError("Date.prototype.%s called on incompatible receiver %s", method, describe(this))
}

func setTimeValue(o *runtime.Object, tv float64) (*runtime.Value, error) {
	ref, err := o.TryBorrowMut()
	if err != nil {
		return nil, err
	}
	defer ref.Release()
	v := runtime.NewNumber(tv)
	ref.SetData(runtime.NewPrimitiveData(runtime.KindDate, v))
	return v, nil
}

func dateValueOf(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	_, tv, err := thisTimeValue(a, this, "valueOf")
	if err != nil {
		return nil, err
	}
	return runtime.NewNumber(tv), nil
}

func dateGetTimezoneOffset(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	_, tv, err := thisTimeValue(a, this, "getTimezoneOffset")
	if err != nil {
		return nil, err
	}
	if math.IsNaN(tv) {
		return runtime.NaN, nil
	}
	return runtime.NewNumber((tv - localTime(tv)) / 60000), nil
}

func dateGetter(name string, field int, utc bool) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		_, tv, err := thisTimeValue(a, this, name)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(tv) {
			return runtime.NaN, nil
		}
		if !utc {
			tv = localTime(tv)
		}
		return runtime.NewNumber(decomposeTime(tv)[field]), nil
	}
}

func dateSetTime(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, _, err := thisTimeValue(a, this, "setTime")
	if err != nil {
		return nil, err
	}
	t, err := argAt(args, 0).ToNumber(a)
	if err != nil {
		return nil, err
	}
	return setTimeValue(o, timeClip(t))
}

// dateSetter replaces up to maxArgs consecutive fields starting at first.
// Only setFullYear recovers from an invalid date, starting at +0.
func dateSetter(name string, first, maxArgs int, utc bool) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		o, tv, err := thisTimeValue(a, this, name)
		if err != nil {
			return nil, err
		}
		n := max(min(len(args), maxArgs), 1)
		vals := make([]float64, n)
		for i := range vals {
			if vals[i], err = argAt(args, i).ToNumber(a); err != nil {
				return nil, err
			}
		}
		if math.IsNaN(tv) {
			if first != fieldYear {
				return runtime.NaN, nil
			}
			tv = 0
		} else if !utc {
			tv = localTime(tv)
		}
		parts := decomposeTime(tv)
		var comps [7]float64
		copy(comps[:], parts[:7])
		copy(comps[first:], vals)
		nt := makeDateFromFields(comps)
		if !utc {
			nt = utcFromLocal(nt)
		}
		return setTimeValue(o, timeClip(nt))
	}
}

func dateGetYear(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	_, tv, err := thisTimeValue(a, this, "getYear")
	if err != nil {
		return nil, err
	}
	if math.IsNaN(tv) {
		return runtime.NaN, nil
	}
	return runtime.NewNumber(decomposeTime(localTime(tv))[fieldYear] - 1900), nil
}

func dateSetYear(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, tv, err := thisTimeValue(a, this, "setYear")
	if err != nil {
		return nil, err
	}
	y, err := argAt(args, 0).ToNumber(a)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(y) {
		return setTimeValue(o, math.NaN())
	}
	t := 0.0
	if !math.IsNaN(tv) {
		t = localTime(tv)
	}
	if yi := runtime.IntegerOrInfinity(y); yi >= 0 && yi <= 99 {
		y = 1900 + yi
	}
	parts := decomposeTime(t)
	var comps [7]float64
	copy(comps[:], parts[:7])
	comps[fieldYear] = y
	return setTimeValue(o, timeClip(utcFromLocal(makeDateFromFields(comps))))
}

func dateFormatter(format func(time.Time) string) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		_, tv, err := thisTimeValue(a, this, "toString")
		if err != nil {
			return nil, err
		}
		return runtime.NewString(formatTimeValue(tv, format)), nil
	}
}

func formatTimeValue(tv float64, format func(time.Time) string) string {
	if math.IsNaN(tv) {
		return "Invalid Date"
	}
	return format(time.UnixMilli(int64(tv)).In(time.Local))
}

func formatDateTime(t time.Time) string {
	return t.Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)")
}

func dateToUTCString(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	_, tv, err := thisTimeValue(a, this, "toUTCString")
	if err != nil {
		return nil, err
	}
	if math.IsNaN(tv) {
		return runtime.NewString("Invalid Date"), nil
	}
	return runtime.NewString(time.UnixMilli(int64(tv)).UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")), nil
}

func dateToISOString(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	_, tv, err := thisTimeValue(a, this, "toISOString")
	if err != nil {
		return nil, err
	}
	if math.IsNaN(tv) {
		return nil, a.ThrowRangeError("Invalid time value")
	}
	return runtime.NewString(dateToISO(tv)), nil
}

// dateToISO renders a time value in the simplified ISO 8601 format, using
// six-digit signed years outside 0000-9999.
func dateToISO(tv float64) string {
	if math.IsNaN(tv) {
		return "Invalid Date"
	}
	p := decomposeTime(tv)
	year := int64(p[fieldYear])
	ys := fmt.Sprintf("%04d", year)
	if year < 0 || year > 9999 {
		ys = fmt.Sprintf("%+07d", year)
	}
	return fmt.Sprintf("%s-%02d-%02dT%02d:%02d:%02d.%03dZ", ys,
		int(p[fieldMonth])+1, int(p[fieldDate]), int(p[fieldHours]), int(p[fieldMinutes]), int(p[fieldSeconds]), int(p[fieldMillis]))
}

func dateToJSON(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	tv, err := runtime.NewObject(o).ToPrimitive(a, runtime.HintNumber)
	if err != nil {
		return nil, err
	}
	if tv.IsNumber() && (math.IsNaN(tv.Float()) || math.IsInf(tv.Float(), 0)) {
		return runtime.Null, nil
	}
	return runtime.Invoke(a, runtime.NewObject(o), runtime.StringKey("toISOString"), nil)
}

func dateToPrimitive(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if !this.IsObject() {
		return nil, a.ThrowTypeError("Date.prototype[Symbol.toPrimitive] called on non-object")
	}
	hint := argAt(args, 0)
	switch {
	case hint.IsString() && (hint.Str == "string" || hint.Str == "default"):
		return runtime.OrdinaryToPrimitive(a, this.Object, runtime.HintString)
	case hint.IsString() && hint.Str == "number":
		return runtime.OrdinaryToPrimitive(a, this.Object, runtime.HintNumber)
	}
	return nil, a.ThrowTypeError("Invalid hint: %s", describe(hint))
}

func timeClip(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) || math.Abs(t) > maxTimeClip {
		return math.NaN()
	}
	return runtime.IntegerOrInfinity(t) + 0
}

// decomposeTime splits a time value (already shifted to the wanted zone)
// into calendar fields.
func decomposeTime(t float64) [8]float64 {
	ms := int64(t)
	tm := time.UnixMilli(ms).UTC()
	millis := ms % 1000
	if millis < 0 {
		millis += 1000
	}
	return [8]float64{
		float64(tm.Year()),
		float64(tm.Month() - 1),
		float64(tm.Day()),
		float64(tm.Hour()),
		float64(tm.Minute()),
		float64(tm.Second()),
		float64(millis),
		float64(tm.Weekday()),
	}
}

func makeDay(year, month, date float64) float64 {
	if math.IsNaN(year) || math.IsInf(year, 0) || math.IsNaN(month) || math.IsInf(month, 0) || math.IsNaN(date) || math.IsInf(date, 0) {
		return math.NaN()
	}
	y, m, dt := runtime.IntegerOrInfinity(year), runtime.IntegerOrInfinity(month), runtime.IntegerOrInfinity(date)
	ym := y + math.Floor(m/12)
	mn := math.Mod(m, 12)
	if mn < 0 {
		mn += 12
	}
	if math.Abs(ym) > 400000 {
		return math.NaN()
	}
	first := time.Date(int(ym), time.Month(mn+1), 1, 0, 0, 0, 0, time.UTC)
	return float64(first.Unix()/86400) + dt - 1
}

func makeTime(h, m, s, ms float64) float64 {
	for _, f := range [4]float64{h, m, s, ms} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return math.NaN()
		}
	}
	return runtime.IntegerOrInfinity(h)*3600000 + runtime.IntegerOrInfinity(m)*60000 +
		runtime.IntegerOrInfinity(s)*1000 + runtime.IntegerOrInfinity(ms)
}

func makeDateFromFields(c [7]float64) float64 {
	day := makeDay(c[fieldYear], c[fieldMonth], c[fieldDate])
	tm := makeTime(c[fieldHours], c[fieldMinutes], c[fieldSeconds], c[fieldMillis])
	t := day*msPerDay + tm
	if math.IsInf(t, 0) {
		return math.NaN()
	}
	return t
}

func zoneOffset(t float64) float64 {
	_, off := time.UnixMilli(int64(t)).In(time.Local).Zone()
	return float64(off) * 1000
}

func localTime(t float64) float64 {
	return t + zoneOffset(t)
}

func utcFromLocal(t float64) float64 {
	if math.IsNaN(t) || math.Abs(t) > maxTimeClip+msPerDay {
		return t
	}
	return t - zoneOffset(t-zoneOffset(t))
}

// Layouts accepted by Date.parse besides the ISO forms. utc marks
// layouts without zone information that still denote UTC.
var dateLayouts = []struct {
	layout string
	utc    bool
}{
	{"2006", true},
	{"2006-01", true},
	{"2006-01-02", true},
	{"2006-01-02T15:04Z07:00", false},
	{"2006-01-02T15:04:05Z07:00", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02T15:04:05", false},
	{"Mon Jan 02 2006 15:04:05 GMT-0700", false},
	{"Mon Jan 02 2006", false},
	{"Mon, 02 Jan 2006 15:04:05 GMT", true},
	{"Mon, 02 Jan 2006 15:04:05 MST", false},
	{"January 2, 2006", false},
	{"Jan 2, 2006", false},
	{"Jan 2, 2006 15:04:05", false},
	{"1/2/2006", false},
	{"1/2/2006, 3:04:05 PM", false},
	{"2006/01/02", false},
}

// parseDate returns the time value denoted by s, or NaN.
func parseDate(s string) float64 {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" {
		return math.NaN()
	}
	// Expanded years: ±YYYYYY-MM-DD...
	yearShift := 0
	if (s[0] == '+' || s[0] == '-') && len(s) >= 7 {
		y, err := strconv.Atoi(s[1:7])
		if err != nil || (s[0] == '-' && y == 0) {
			return math.NaN()
		}
		if s[0] == '-' {
			y = -y
		}
		yearShift = y - 2000
		s = "2000" + s[7:]
	}
	for _, l := range dateLayouts {
		loc := time.Local
		if l.utc {
			loc = time.UTC
		}
		t, err := time.ParseInLocation(l.layout, s, loc)
		if err != nil {
			continue
		}
		if yearShift != 0 {
			t = time.Date(t.Year()+yearShift, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		}
		return timeClip(float64(t.UnixMilli()))
	}
	return math.NaN()
}
