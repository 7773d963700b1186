package panes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
)

func fullMapping() map[string]string {
	return map[string]string{
		"queen":     "0.0",
		"developer": "0.1",
		"qa":        "0.2",
		"analyst":   "0.3",
	}
}

func TestNewTable_RequiresAllWorkers(t *testing.T) {
	_, err := NewTable(map[string]string{"queen": "0.0"})
	require.Error(t, err)
}

func TestNewTable_RejectsNonAssignableBee(t *testing.T) {
	m := fullMapping()
	m["system"] = "0.4"
	_, err := NewTable(m)
	require.Error(t, err)
}

func TestResolve_KnownBee(t *testing.T) {
	table, err := NewTable(fullMapping())
	require.NoError(t, err)

	pane, err := table.Resolve(domain.Developer)
	require.NoError(t, err)
	assert.Equal(t, domain.Pane("0.1"), pane)
}

func TestResolve_UnknownBee(t *testing.T) {
	table, err := NewTable(fullMapping())
	require.NoError(t, err)

	_, err = table.Resolve(domain.BeeName("gremlin"))
	require.Error(t, err)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolve_AllIsNotASinglePane(t *testing.T) {
	table, err := NewTable(fullMapping())
	require.NoError(t, err)

	_, err = table.Resolve(domain.All)
	require.Error(t, err)
}

func TestResolveAll_ExcludesSender(t *testing.T) {
	table, err := NewTable(fullMapping())
	require.NoError(t, err)

	recipients := table.ResolveAll(domain.Developer)
	assert.Len(t, recipients, 3)
	assert.NotContains(t, recipients, domain.Developer)
}

func TestValidate_ClosedSet(t *testing.T) {
	assert.NoError(t, Validate(domain.Queen))
	assert.NoError(t, Validate(domain.System))
	assert.NoError(t, Validate(domain.All))
	assert.Error(t, Validate(domain.BeeName("nope")))
}
