package page

import (
	"testing"

	"github.com/TIANLI0/AttackLens/model"
	"github.com/stretchr/testify/assert"
)

var testFile = &File{Name: "digit.png", ContentType: "image/png", Data: []byte("png")}

func TestNewState(t *testing.T) {
	s := NewState()

	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Nil(t, s.SelectedFile())
	assert.Equal(t, 0.1, s.Epsilon())
	assert.False(t, s.IsLoading())
	assert.Nil(t, s.Result())
	assert.Empty(t, s.ErrorMessage())
	assert.False(t, s.CanSubmit())
}

func TestCanSubmitRequiresFile(t *testing.T) {
	for _, eps := range []float64{0, 0.1, 0.5, 1} {
		s := NewState().SetEpsilon(eps)
		assert.False(t, s.CanSubmit(), "epsilon %v", eps)
	}

	s := NewState().SelectFile(testFile)
	assert.True(t, s.CanSubmit())

	s = s.StartSubmit().ResolveError("boom").SelectFile(nil)
	assert.False(t, s.CanSubmit())
}

func TestCanSubmitFalseWhileLoading(t *testing.T) {
	s := NewState().SelectFile(testFile).StartSubmit()

	assert.True(t, s.IsLoading())
	assert.False(t, s.CanSubmit())
	assert.Equal(t, "submitting", s.Phase().String())
}

func TestSetEpsilonClamps(t *testing.T) {
	assert.Equal(t, 0.0, NewState().SetEpsilon(-3).Epsilon())
	assert.Equal(t, 1.0, NewState().SetEpsilon(1.5).Epsilon())
	assert.Equal(t, 0.07, NewState().SetEpsilon(0.07).Epsilon())
	assert.Equal(t, 0.3, NewState().SetEpsilon(0.1+0.2).Epsilon())
}

func TestStartSubmitClearsPreviousOutcome(t *testing.T) {
	s := NewState().SelectFile(testFile).StartSubmit().ResolveError("Request failed: 500")
	assert.Equal(t, PhaseError, s.Phase())

	s = s.StartSubmit()
	assert.Empty(t, s.ErrorMessage())
	assert.Nil(t, s.Result())

	s = s.ResolveSuccess(&model.AttackResult{CleanPrediction: "7"}).StartSubmit()
	assert.Nil(t, s.Result())
	assert.True(t, s.IsLoading())
}

func TestResolveTransitions(t *testing.T) {
	result := &model.AttackResult{CleanPrediction: "7", AdversarialPrediction: "3"}

	s := NewState().SelectFile(testFile).StartSubmit().ResolveSuccess(result)
	assert.Equal(t, PhaseResult, s.Phase())
	assert.Same(t, result, s.Result())
	assert.False(t, s.IsLoading())
	assert.True(t, s.CanSubmit())

	s = NewState().SelectFile(testFile).StartSubmit().ResolveError("")
	assert.Equal(t, PhaseError, s.Phase())
	assert.Equal(t, UnknownError, s.ErrorMessage())
	assert.True(t, s.CanSubmit())

	s = NewState().SelectFile(testFile).StartSubmit().ResolveSuccess(nil)
	assert.Equal(t, PhaseError, s.Phase())
	assert.Equal(t, UnknownError, s.ErrorMessage())
}

func TestResolveIgnoredWhenNotSubmitting(t *testing.T) {
	s := NewState().ResolveSuccess(&model.AttackResult{})
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Nil(t, s.Result())

	s = s.ResolveError("late")
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, s.ErrorMessage())
}

func TestResultSurvivesInputChanges(t *testing.T) {
	result := &model.AttackResult{CleanPrediction: "7"}
	s := NewState().SelectFile(testFile).StartSubmit().ResolveSuccess(result)

	s = s.SelectFile(&File{Name: "other.jpg"}).SetEpsilon(0.5)
	assert.Same(t, result, s.Result())
	assert.Equal(t, PhaseResult, s.Phase())

	s = s.StartSubmit()
	assert.Nil(t, s.Result())
}
