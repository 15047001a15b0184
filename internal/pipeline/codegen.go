package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const codeIndent = "    "

// exportSignature opens the generated script. The function takes the raw
// dataframe and returns the cleaned copy, so the export is drop-in usable.
const exportSignature = "def exported_pipeline(df):\n"

const kdeImport = "from sklearn.neighbors import KernelDensity"
const rbmImport = "import boltzmannclean"

// Export renders the whole pipeline as a standalone Python function:
// signature, the deduplicated sorted imports, a defensive copy, one
// commented block per step, and the return.
func Export(steps []Step) (string, error) {
	var code strings.Builder
	imports := map[string]struct{}{}

	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return "", err
		}
		if s.Method == MethodNone {
			continue
		}
		block, deps, err := renderStep(s)
		if err != nil {
			return "", err
		}
		code.WriteString(block)
		for _, dep := range deps {
			imports[dep] = struct{}{}
		}
	}

	var out strings.Builder
	out.WriteString(exportSignature)

	sorted := make([]string, 0, len(imports))
	for imp := range imports {
		sorted = append(sorted, imp)
	}
	sort.Strings(sorted)
	for _, imp := range sorted {
		out.WriteString(indent(imp+"\n", codeIndent))
	}

	out.WriteString(indent("\ndataframe = df.copy()\n\n", codeIndent))
	out.WriteString(code.String())
	out.WriteString(indent("return dataframe", codeIndent))

	return out.String(), nil
}

// renderStep produces the indented, commented code block for one step and
// the import statements it needs.
func renderStep(s Step) (string, []string, error) {
	var body string
	var deps []string

	switch s.Kind {
	case KindOutlier:
		body, deps = outlierCode(s)
	case KindNull:
		body, deps = nullCode(s)
	case KindTypeConvert:
		body, deps = typeConvertCode(s)
	case KindRBM:
		body, deps = rbmCode(s)
	default:
		return "", nil, fmt.Errorf("unknown step kind %q", s.Kind)
	}

	block := "# " + s.Description() + "\n" + body
	return indent(block, codeIndent), deps, nil
}

func outlierCode(s Step) (string, []string) {
	col := pyString(s.Column)
	low, high := pyNumber(s.LowCut), pyNumber(s.HighCut)

	inRange := fmt.Sprintf(
		"col.apply(lambda x: isinstance(x, (int, float)) and %s <= x <= %s)", low, high)
	outOfRange := fmt.Sprintf(
		"col.apply(lambda x: isinstance(x, (int, float)) and (x < %s or x > %s))", low, high)

	replaceWith := func(value string) string {
		return fmt.Sprintf(
			"col = dataframe[%s]\ncol_numerics = col.loc[%s]\ndataframe.loc[%s, %s] = %s\n\n",
			col, inRange, outOfRange, col, value)
	}

	switch s.Method {
	case MethodMean:
		return replaceWith("col_numerics.mean()"), nil
	case MethodMedian:
		return replaceWith("col_numerics.median()"), nil
	case MethodModeNumeric:
		return replaceWith("col_numerics.mode().get(0, None)"), nil
	case MethodNull:
		return fmt.Sprintf(
			"col = dataframe[%s]\ndataframe.loc[%s, %s] = None\n\n",
			col, outOfRange, col), nil
	case MethodNearestCut:
		return fmt.Sprintf(
			"col = dataframe[%s]\n"+
				"dataframe.loc[col.apply(lambda x: isinstance(x, (int, float)) and x < %s), %s] = %s\n"+
				"dataframe.loc[col.apply(lambda x: isinstance(x, (int, float)) and x > %s), %s] = %s\n\n",
			col, low, col, low, high, col, high), nil
	case MethodDrop:
		return fmt.Sprintf(
			"col = dataframe[%s]\n"+
				"dataframe = dataframe.loc[col.isnull() | col.apply(lambda x: not isinstance(x, (int, float)) or %s <= x <= %s), :]\n\n",
			col, low, high), nil
	case MethodSample:
		return fmt.Sprintf(
			"col = dataframe[%s]\n"+
				"col_numerics = col.loc[%s]\n"+
				"kde = KernelDensity()\n"+
				"kde.fit(col_numerics.values.reshape(-1, 1))\n"+
				"is_outlier = %s\n"+
				"dataframe.loc[is_outlier, %s] = kde.sample(n_samples=is_outlier.sum()).flatten()\n\n",
			col, inRange, outOfRange, col), []string{kdeImport}
	}
	return "", nil
}

func nullCode(s Step) (string, []string) {
	col := pyString(s.Column)
	numerics := "col.loc[col.apply(lambda x: isinstance(x, (int, float)))]"

	fillWith := func(value string) string {
		return fmt.Sprintf(
			"col = dataframe[%s]\ncol_numerics = %s\ndataframe[%s] = col.fillna(%s)\n\n",
			col, numerics, col, value)
	}

	switch s.Method {
	case MethodMean:
		return fillWith("col_numerics.mean()"), nil
	case MethodMedian:
		return fillWith("col_numerics.median()"), nil
	case MethodModeNumeric:
		return fillWith("col_numerics.mode().get(0, None)"), nil
	case MethodMode:
		return fmt.Sprintf(
			"col = dataframe[%s]\ndataframe[%s] = col.fillna(col.mode().get(0, None))\n\n",
			col, col), nil
	case MethodDrop:
		return fmt.Sprintf("dataframe = dataframe.dropna(subset=[%s])\n\n", col), nil
	case MethodSample:
		return fmt.Sprintf(
			"col = dataframe[%s]\n"+
				"col_numerics = col.loc[col.notnull() & col.apply(lambda x: isinstance(x, (int, float)))]\n"+
				"kde = KernelDensity()\n"+
				"kde.fit(col_numerics.values.reshape(-1, 1))\n"+
				"dataframe.loc[col.isnull(), %s] = kde.sample(n_samples=col.isnull().sum()).flatten()\n\n",
			col, col), []string{kdeImport}
	}
	return "", nil
}

func typeConvertCode(s Step) (string, []string) {
	col := pyString(s.Column)
	typ := s.DataType

	mistyped := fmt.Sprintf("col.notnull() & col.apply(lambda x: not isinstance(x, %s))", typ)

	replaceWith := func(pool, value string) string {
		return fmt.Sprintf(
			"col = dataframe[%s]\ncol_pool = %s\ndataframe.loc[%s, %s] = %s\n\n",
			col, pool, mistyped, col, value)
	}

	switch s.Method {
	case MethodMean:
		return replaceWith(
			"col.loc[col.apply(lambda x: isinstance(x, (int, float)))]",
			"col_pool.mean()"), nil
	case MethodMedian:
		return replaceWith(
			"col.loc[col.apply(lambda x: isinstance(x, (int, float)))]",
			"col_pool.median()"), nil
	case MethodMode:
		return replaceWith(
			fmt.Sprintf("col.loc[col.apply(lambda x: isinstance(x, %s))]", typ),
			"col_pool.mode().get(0, None)"), nil
	case MethodCast:
		return fmt.Sprintf(
			"def try_cast(x):\n"+
				"    try:\n"+
				"        return %s(x)\n"+
				"    except ValueError:\n"+
				"        return x\n"+
				"dataframe[%s] = dataframe[%s].apply(try_cast)\n\n",
			typ, col, col), nil
	case MethodDrop:
		return fmt.Sprintf(
			"col = dataframe[%s]\n"+
				"dataframe = dataframe.loc[col.isnull() | col.apply(lambda x: isinstance(x, %s)), :]\n\n",
			col, typ), nil
	case MethodSample:
		return fmt.Sprintf(
			"col = dataframe[%s]\n"+
				"col_numerics = col.loc[col.notnull() & col.apply(lambda x: isinstance(x, (int, float)))]\n"+
				"kde = KernelDensity()\n"+
				"kde.fit(col_numerics.values.reshape(-1, 1))\n"+
				"is_wrong_type = col.apply(lambda x: not isinstance(x, %s))\n"+
				"dataframe.loc[is_wrong_type, %s] = kde.sample(n_samples=is_wrong_type.sum()).flatten()\n\n",
			col, typ, col), []string{kdeImport}
	}
	return "", nil
}

func rbmCode(s Step) (string, []string) {
	return fmt.Sprintf(
		"dataframe = boltzmannclean.clean(dataframe, numerical_columns=%s, categorical_columns=%s, tune_rbm=True)\n\n",
		pyStringList(s.NumericalColumns), pyStringList(s.CategoricalColumns)), []string{rbmImport}
}

// indent prefixes every non-blank line of text, keeping blank lines bare
// the way Python tooling expects.
func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			b.WriteString(prefix)
		}
		b.WriteString(line)
	}
	return b.String()
}

// pyString renders a Python single-quoted string literal.
func pyString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

// pyStringList renders a Python list literal of strings.
func pyStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyString(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// pyNumber renders a numeric literal the way Python would, dropping the
// fraction for integral values.
func pyNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
