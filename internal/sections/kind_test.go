package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds([]string{"technical_skills", " Projects ", "work_experience"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{TechnicalSkills, Projects, WorkExperience}, kinds)

	_, err = ParseKinds([]string{"projects", "projects"})
	assert.Error(t, err)

	_, err = ParseKinds([]string{"hobbies"})
	assert.Error(t, err)
}

func TestBehaviorOf(t *testing.T) {
	b, ok := BehaviorOf(TechnicalSkills)
	require.True(t, ok)
	assert.Equal(t, UnitSkillToken, b.Unit)
	assert.Equal(t, "skill_token", b.Unit.String())

	b, ok = BehaviorOf(Education)
	require.True(t, ok)
	assert.Equal(t, UnitItem, b.Unit)
	assert.True(t, b.ProtectLast)

	_, ok = BehaviorOf(Kind("hobbies"))
	assert.False(t, ok)
}
