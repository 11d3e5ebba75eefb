package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/refit/internal/adapter"
	m "github.com/mouse-blink/refit/internal/model"
)

func measureSource(t *testing.T, source string) (m.Measurements, *m.Node) {
	t.Helper()

	tree, err := adapter.NewLocalPythonFileAdapter().Parse("test.py", []byte(source))
	require.NoError(t, err)

	measurements, errs := NewMetricEngine().Measure(tree)
	require.Empty(t, errs)

	return measurements, tree
}

func TestMeasure_StraightLineComplexity(t *testing.T) {
	measurements, _ := measureSource(t, "def f(a):\n    x = a\n    return x\n")

	set := measurements["module/function:f#0"]
	assert.Equal(t, 1, set[m.MetricComplexity])
	assert.Equal(t, 2, set[m.MetricLength])
}

func TestMeasure_BranchesAddComplexity(t *testing.T) {
	source := `def f(a):
    if a > 0:
        pass
    if a < 0:
        pass
    for i in range(a):
        pass
`
	measurements, _ := measureSource(t, source)

	// 1 + two ifs + one for
	assert.Equal(t, 4, measurements["module/function:f#0"][m.MetricComplexity])
}

func TestMeasure_ElifCountsAsBranch(t *testing.T) {
	source := `def f(a):
    if a == 1:
        pass
    elif a == 2:
        pass
    else:
        pass
`
	measurements, _ := measureSource(t, source)

	// 1 + if + elif; the bare else adds nothing
	assert.Equal(t, 3, measurements["module/function:f#0"][m.MetricComplexity])
}

func TestMeasure_BooleanOperatorsAddComplexity(t *testing.T) {
	source := `def f(a, b, c):
    if a and b and c:
        pass
`
	measurements, _ := measureSource(t, source)

	// 1 + if + two boolean operators
	assert.Equal(t, 4, measurements["module/function:f#0"][m.MetricComplexity])
}

func TestMeasure_ExceptAndWithAddComplexity(t *testing.T) {
	source := `def f(path):
    try:
        with open(path) as fh:
            fh.read()
    except OSError:
        pass
`
	measurements, _ := measureSource(t, source)

	// 1 + with + except; try itself adds nothing
	assert.Equal(t, 3, measurements["module/function:f#0"][m.MetricComplexity])
}

func TestMeasure_NestingDepth(t *testing.T) {
	source := `def f(a):
    if a:
        for i in range(a):
            while i:
                pass
`
	measurements, _ := measureSource(t, source)

	assert.Equal(t, 3, measurements["module/function:f#0"][m.MetricNesting])
}

func TestMeasure_ArgCountExcludesSelf(t *testing.T) {
	source := `class C:
    def method(self, a, b):
        pass
`
	measurements, _ := measureSource(t, source)

	set := measurements["module/class:C#0/function:method#0"]
	assert.Equal(t, 2, set[m.MetricArgCount])
}

func TestMeasure_TryBlockCount(t *testing.T) {
	source := `def f():
    try:
        pass
    except ValueError:
        pass
    try:
        pass
    except KeyError:
        pass
`
	measurements, _ := measureSource(t, source)

	assert.Equal(t, 2, measurements["module/function:f#0"][m.MetricTryBlocks])
}

func TestMeasure_NestedFunctionsMeasureSeparately(t *testing.T) {
	source := `def outer():
    def inner(a):
        if a:
            pass
    inner(1)
`
	measurements, _ := measureSource(t, source)

	assert.Equal(t, 1, measurements["module/function:outer#0"][m.MetricComplexity])
	assert.Equal(t, 2, measurements["module/function:outer#0/function:inner#0"][m.MetricComplexity])
}

func TestMeasure_Deterministic(t *testing.T) {
	source := `def f(a):
    if a and a > 1:
        return a
    return 0
`
	first, _ := measureSource(t, source)
	second, _ := measureSource(t, source)

	assert.Equal(t, first, second)
}
