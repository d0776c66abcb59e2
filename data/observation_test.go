package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationValues(t *testing.T) {
	obs := NewObservation("Sighting", map[string]Value{"species": "DEER", "count": 3})

	assert.Equal(t, "Sighting", obs.TypeName())

	v, ok := obs.Value("species")
	require.True(t, ok)
	assert.Equal(t, "DEER", v)

	_, ok = obs.Value("nope")
	assert.False(t, ok)
}

// The observation owns a copy of the value map it was built from.
func TestObservationCopiesInput(t *testing.T) {
	values := map[string]Value{"x": 1}
	obs := NewObservation("T", values)
	values["x"] = 2

	v, _ := obs.Value("x")
	assert.Equal(t, 1, v)
}

func TestObservationCopy(t *testing.T) {
	obs := NewObservation("T", map[string]Value{"x": 1, "y": 2})
	mod := obs.Copy(map[string]Value{"y": 20})

	v, _ := obs.Value("y")
	assert.Equal(t, 2, v)
	v, _ = mod.Value("y")
	assert.Equal(t, 20, v)
	v, _ = mod.Value("x")
	assert.Equal(t, 1, v)
}

func TestObservationEqual(t *testing.T) {
	a := NewObservation("T", map[string]Value{"x": 1, "d": Date{Year: 1996, Month: 12, Day: 1}})
	b := NewObservation("T", map[string]Value{"x": 1, "d": Date{Year: 1996, Month: 12, Day: 1}})
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(NewObservation("U", map[string]Value{"x": 1})))
	assert.False(t, a.Equal(a.Copy(map[string]Value{"x": 2})))
	assert.False(t, a.Equal(NewObservation("T", map[string]Value{"x": 1})))
}

func TestDateString(t *testing.T) {
	assert.Equal(t, "12/1/96", Date{Year: 1996, Month: 12, Day: 1}.String())
	assert.Equal(t, "1/2/03", Date{Year: 2003, Month: 1, Day: 2}.String())
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "9:30:00", TimeOfDay{Hour: 9, Minute: 30}.String())
	assert.Equal(t, "0:00:00", TimeOfDay{}.String())
}
