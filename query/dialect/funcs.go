package dialect

import "fmt"

// Func identifies a scalar function the translator can emit.
// Templates reference arguments as {0}, {1}, ...; an argument may appear more than once.
type Func int

const (
	FuncContains Func = iota
	FuncStartsWith
	FuncEndsWith
	FuncReplace
	FuncTrim
	FuncTrimStart
	FuncTrimEnd
	FuncSubstring
	FuncSubstringFrom
	FuncUpper
	FuncLower
	FuncLength
	FuncIndexOf
	FuncConcat

	FuncAbs
	FuncRound
	FuncRoundDigits
	FuncFloor
	FuncCeiling
	FuncPower
	FuncSqrt
	FuncLn
	FuncLog10
	FuncLog
	FuncGreatest
	FuncLeast

	FuncYear
	FuncMonth
	FuncDay
	FuncHour
	FuncMinute
	FuncSecond
	FuncDayOfWeek
	FuncDate
	FuncAddDays
	FuncAddMonths
	FuncAddYears
	FuncAddHours
	FuncAddMinutes
	FuncAddSeconds

	FuncBitXor

	// FuncTimeKey rewrites a timestamp into the form two timestamps compare in.
	// Only dialects that store time as text define it.
	FuncTimeKey
)

type funcInfo struct {
	name  string
	arity int
	bool  bool
}

var funcInfos = map[Func]funcInfo{
	FuncContains:      {"contains", 2, true},
	FuncStartsWith:    {"startsWith", 2, true},
	FuncEndsWith:      {"endsWith", 2, true},
	FuncReplace:       {"replace", 3, false},
	FuncTrim:          {"trim", 1, false},
	FuncTrimStart:     {"trimStart", 1, false},
	FuncTrimEnd:       {"trimEnd", 1, false},
	FuncSubstring:     {"substring", 3, false},
	FuncSubstringFrom: {"substringFrom", 2, false},
	FuncUpper:         {"upper", 1, false},
	FuncLower:         {"lower", 1, false},
	FuncLength:        {"length", 1, false},
	FuncIndexOf:       {"indexOf", 2, false},
	FuncConcat:        {"concat", 2, false},
	FuncAbs:           {"abs", 1, false},
	FuncRound:         {"round", 1, false},
	FuncRoundDigits:   {"roundTo", 2, false},
	FuncFloor:         {"floor", 1, false},
	FuncCeiling:       {"ceiling", 1, false},
	FuncPower:         {"power", 2, false},
	FuncSqrt:          {"sqrt", 1, false},
	FuncLn:            {"ln", 1, false},
	FuncLog10:         {"log10", 1, false},
	FuncLog:           {"log", 2, false},
	FuncGreatest:      {"max", 2, false},
	FuncLeast:         {"min", 2, false},
	FuncYear:          {"year", 1, false},
	FuncMonth:         {"month", 1, false},
	FuncDay:           {"day", 1, false},
	FuncHour:          {"hour", 1, false},
	FuncMinute:        {"minute", 1, false},
	FuncSecond:        {"second", 1, false},
	FuncDayOfWeek:     {"dayOfWeek", 1, false},
	FuncDate:          {"date", 1, false},
	FuncAddDays:       {"addDays", 2, false},
	FuncAddMonths:     {"addMonths", 2, false},
	FuncAddYears:      {"addYears", 2, false},
	FuncAddHours:      {"addHours", 2, false},
	FuncAddMinutes:    {"addMinutes", 2, false},
	FuncAddSeconds:    {"addSeconds", 2, false},
	FuncBitXor:        {"xor", 2, false},
	FuncTimeKey:       {"timeKey", 1, false},
}

// String returns the caller-facing name of the function
func (f Func) String() string {
	if info, ok := funcInfos[f]; ok {
		return info.name
	}
	return fmt.Sprintf("func(%d)", int(f))
}

// Arity returns the number of arguments f takes
func (f Func) Arity() int {
	return funcInfos[f].arity
}

// Predicate reports whether f yields a boolean condition rather than a value
func (f Func) Predicate() bool {
	return funcInfos[f].bool
}

// FuncByName resolves a caller-facing function name
func FuncByName(name string) (Func, bool) {
	for f, info := range funcInfos {
		if info.name == name && f != FuncTimeKey {
			return f, true
		}
	}
	return 0, false
}

// SQLite ships math functions from 3.35 (SQLITE_ENABLE_MATH_FUNCTIONS).
var sqliteFuncs = map[Func]string{
	FuncContains:      "INSTR({0}, {1}) > 0",
	FuncStartsWith:    "SUBSTR({0}, 1, LENGTH({1})) = {1}",
	FuncEndsWith:      "SUBSTR({0}, LENGTH({0}) - LENGTH({1}) + 1) = {1}",
	FuncReplace:       "REPLACE({0}, {1}, {2})",
	FuncTrim:          "TRIM({0})",
	FuncTrimStart:     "LTRIM({0})",
	FuncTrimEnd:       "RTRIM({0})",
	FuncSubstring:     "SUBSTR({0}, {1} + 1, {2})",
	FuncSubstringFrom: "SUBSTR({0}, {1} + 1)",
	FuncUpper:         "UPPER({0})",
	FuncLower:         "LOWER({0})",
	FuncLength:        "LENGTH({0})",
	FuncIndexOf:       "INSTR({0}, {1}) - 1",
	FuncConcat:        "{0} || {1}",
	FuncAbs:           "ABS({0})",
	FuncRound:         "ROUND({0})",
	FuncRoundDigits:   "ROUND({0}, {1})",
	FuncFloor:         "FLOOR({0})",
	FuncCeiling:       "CEILING({0})",
	FuncPower:         "POWER({0}, {1})",
	FuncSqrt:          "SQRT({0})",
	FuncLn:            "LN({0})",
	FuncLog10:         "LOG10({0})",
	FuncLog:           "LOG({1}, {0})",
	FuncGreatest:      "MAX({0}, {1})",
	FuncLeast:         "MIN({0}, {1})",
	FuncYear:          "CAST(STRFTIME('%Y', {0}) AS INTEGER)",
	FuncMonth:         "CAST(STRFTIME('%m', {0}) AS INTEGER)",
	FuncDay:           "CAST(STRFTIME('%d', {0}) AS INTEGER)",
	FuncHour:          "CAST(STRFTIME('%H', {0}) AS INTEGER)",
	FuncMinute:        "CAST(STRFTIME('%M', {0}) AS INTEGER)",
	FuncSecond:        "CAST(STRFTIME('%S', {0}) AS INTEGER)",
	FuncDayOfWeek:     "CAST(STRFTIME('%w', {0}) AS INTEGER)",
	FuncDate:          "DATE({0})",
	FuncAddDays:       "STRFTIME('%Y-%m-%d %H:%M:%f', {0}, {1} || ' days')",
	FuncAddMonths:     "STRFTIME('%Y-%m-%d %H:%M:%f', {0}, {1} || ' months')",
	FuncAddYears:      "STRFTIME('%Y-%m-%d %H:%M:%f', {0}, {1} || ' years')",
	FuncAddHours:      "STRFTIME('%Y-%m-%d %H:%M:%f', {0}, {1} || ' hours')",
	FuncAddMinutes:    "STRFTIME('%Y-%m-%d %H:%M:%f', {0}, {1} || ' minutes')",
	FuncAddSeconds:    "STRFTIME('%Y-%m-%d %H:%M:%f', {0}, {1} || ' seconds')",
	FuncBitXor:        "(({0} | {1}) - ({0} & {1}))",
	FuncTimeKey:       "STRFTIME('%Y-%m-%d %H:%M:%f', {0})",
}

// LEN drops trailing spaces, so SQL Server lengths are taken with a sentinel
// appended. CHARINDEX never finds an empty needle, which is handled up front.
var sqlServerFuncs = map[Func]string{
	FuncContains:      "(CHARINDEX({1}, {0}) > 0 OR LEN({1} + 'x') = 1)",
	FuncStartsWith:    "LEFT({0}, LEN({1} + 'x') - 1) = {1}",
	FuncEndsWith:      "RIGHT({0}, LEN({1} + 'x') - 1) = {1}",
	FuncReplace:       "REPLACE({0}, {1}, {2})",
	FuncTrim:          "LTRIM(RTRIM({0}))",
	FuncTrimStart:     "LTRIM({0})",
	FuncTrimEnd:       "RTRIM({0})",
	FuncSubstring:     "SUBSTRING({0}, {1} + 1, {2})",
	FuncSubstringFrom: "SUBSTRING({0}, {1} + 1, DATALENGTH({0}))",
	FuncUpper:         "UPPER({0})",
	FuncLower:         "LOWER({0})",
	FuncLength:        "(LEN({0} + 'x') - 1)",
	FuncIndexOf:       "(CASE WHEN LEN({1} + 'x') = 1 THEN 0 ELSE CHARINDEX({1}, {0}) - 1 END)",
	FuncConcat:        "{0} + {1}",
	FuncAbs:           "ABS({0})",
	FuncRound:         "ROUND({0}, 0)",
	FuncRoundDigits:   "ROUND({0}, {1})",
	FuncFloor:         "FLOOR({0})",
	FuncCeiling:       "CEILING({0})",
	FuncPower:         "POWER({0}, {1})",
	FuncSqrt:          "SQRT({0})",
	FuncLn:            "LOG({0})",
	FuncLog10:         "LOG10({0})",
	FuncLog:           "LOG({0}, {1})",
	FuncGreatest:      "(CASE WHEN {0} >= {1} THEN {0} ELSE {1} END)",
	FuncLeast:         "(CASE WHEN {0} <= {1} THEN {0} ELSE {1} END)",
	FuncYear:          "DATEPART(year, {0})",
	FuncMonth:         "DATEPART(month, {0})",
	FuncDay:           "DATEPART(day, {0})",
	FuncHour:          "DATEPART(hour, {0})",
	FuncMinute:        "DATEPART(minute, {0})",
	FuncSecond:        "DATEPART(second, {0})",
	FuncDayOfWeek:     "(DATEPART(weekday, {0}) - 1)",
	FuncDate:          "CAST({0} AS date)",
	FuncAddDays:       "DATEADD(day, {1}, {0})",
	FuncAddMonths:     "DATEADD(month, {1}, {0})",
	FuncAddYears:      "DATEADD(year, {1}, {0})",
	FuncAddHours:      "DATEADD(hour, {1}, {0})",
	FuncAddMinutes:    "DATEADD(minute, {1}, {0})",
	FuncAddSeconds:    "DATEADD(second, {1}, {0})",
	FuncBitXor:        "({0} ^ {1})",
}

var postgresFuncs = map[Func]string{
	FuncContains:      "STRPOS({0}, {1}) > 0",
	FuncStartsWith:    "LEFT({0}, LENGTH({1})) = {1}",
	FuncEndsWith:      "RIGHT({0}, LENGTH({1})) = {1}",
	FuncReplace:       "REPLACE({0}, {1}, {2})",
	FuncTrim:          "TRIM({0})",
	FuncTrimStart:     "LTRIM({0})",
	FuncTrimEnd:       "RTRIM({0})",
	FuncSubstring:     "SUBSTRING({0} FROM {1} + 1 FOR {2})",
	FuncSubstringFrom: "SUBSTRING({0} FROM {1} + 1)",
	FuncUpper:         "UPPER({0})",
	FuncLower:         "LOWER({0})",
	FuncLength:        "LENGTH({0})",
	FuncIndexOf:       "STRPOS({0}, {1}) - 1",
	FuncConcat:        "{0} || {1}",
	FuncAbs:           "ABS({0})",
	FuncRound:         "ROUND({0})",
	FuncRoundDigits:   "ROUND({0}, {1})",
	FuncFloor:         "FLOOR({0})",
	FuncCeiling:       "CEIL({0})",
	FuncPower:         "POWER({0}, {1})",
	FuncSqrt:          "SQRT({0})",
	FuncLn:            "LN({0})",
	FuncLog10:         "LOG({0})",
	FuncLog:           "LOG({1}, {0})",
	FuncGreatest:      "GREATEST({0}, {1})",
	FuncLeast:         "LEAST({0}, {1})",
	FuncYear:          "CAST(EXTRACT(YEAR FROM {0}) AS INTEGER)",
	FuncMonth:         "CAST(EXTRACT(MONTH FROM {0}) AS INTEGER)",
	FuncDay:           "CAST(EXTRACT(DAY FROM {0}) AS INTEGER)",
	FuncHour:          "CAST(EXTRACT(HOUR FROM {0}) AS INTEGER)",
	FuncMinute:        "CAST(EXTRACT(MINUTE FROM {0}) AS INTEGER)",
	FuncSecond:        "CAST(FLOOR(EXTRACT(SECOND FROM {0})) AS INTEGER)",
	FuncDayOfWeek:     "CAST(EXTRACT(DOW FROM {0}) AS INTEGER)",
	FuncDate:          "CAST({0} AS DATE)",
	FuncAddDays:       "({0} + {1} * INTERVAL '1 day')",
	FuncAddMonths:     "({0} + {1} * INTERVAL '1 month')",
	FuncAddYears:      "({0} + {1} * INTERVAL '1 year')",
	FuncAddHours:      "({0} + {1} * INTERVAL '1 hour')",
	FuncAddMinutes:    "({0} + {1} * INTERVAL '1 minute')",
	FuncAddSeconds:    "({0} + {1} * INTERVAL '1 second')",
	FuncBitXor:        "({0} # {1})",
}

var mysqlFuncs = map[Func]string{
	FuncContains:      "LOCATE({1}, {0}) > 0",
	FuncStartsWith:    "LEFT({0}, CHAR_LENGTH({1})) = {1}",
	FuncEndsWith:      "RIGHT({0}, CHAR_LENGTH({1})) = {1}",
	FuncReplace:       "REPLACE({0}, {1}, {2})",
	FuncTrim:          "TRIM({0})",
	FuncTrimStart:     "LTRIM({0})",
	FuncTrimEnd:       "RTRIM({0})",
	FuncSubstring:     "SUBSTRING({0}, {1} + 1, {2})",
	FuncSubstringFrom: "SUBSTRING({0}, {1} + 1)",
	FuncUpper:         "UPPER({0})",
	FuncLower:         "LOWER({0})",
	FuncLength:        "CHAR_LENGTH({0})",
	FuncIndexOf:       "LOCATE({1}, {0}) - 1",
	FuncConcat:        "CONCAT({0}, {1})",
	FuncAbs:           "ABS({0})",
	FuncRound:         "ROUND({0})",
	FuncRoundDigits:   "ROUND({0}, {1})",
	FuncFloor:         "FLOOR({0})",
	FuncCeiling:       "CEIL({0})",
	FuncPower:         "POW({0}, {1})",
	FuncSqrt:          "SQRT({0})",
	FuncLn:            "LN({0})",
	FuncLog10:         "LOG10({0})",
	FuncLog:           "LOG({1}, {0})",
	FuncGreatest:      "GREATEST({0}, {1})",
	FuncLeast:         "LEAST({0}, {1})",
	FuncYear:          "YEAR({0})",
	FuncMonth:         "MONTH({0})",
	FuncDay:           "DAY({0})",
	FuncHour:          "HOUR({0})",
	FuncMinute:        "MINUTE({0})",
	FuncSecond:        "SECOND({0})",
	FuncDayOfWeek:     "(DAYOFWEEK({0}) - 1)",
	FuncDate:          "DATE({0})",
	FuncAddDays:       "DATE_ADD({0}, INTERVAL {1} DAY)",
	FuncAddMonths:     "DATE_ADD({0}, INTERVAL {1} MONTH)",
	FuncAddYears:      "DATE_ADD({0}, INTERVAL {1} YEAR)",
	FuncAddHours:      "DATE_ADD({0}, INTERVAL {1} HOUR)",
	FuncAddMinutes:    "DATE_ADD({0}, INTERVAL {1} MINUTE)",
	FuncAddSeconds:    "DATE_ADD({0}, INTERVAL {1} SECOND)",
	FuncBitXor:        "({0} ^ {1})",
}
