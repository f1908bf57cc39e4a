package model_test

import (
	"testing"

	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestSessionReady(t *testing.T) {
	session := model.NewSession("anon-123")
	gt.True(t, session.Ready())
	gt.Equal(t, session.UserID(), model.UserID("anon-123"))
}

func TestSessionNotReadyWithoutUser(t *testing.T) {
	session := model.NewSession("")
	gt.False(t, session.Ready())
	gt.Equal(t, session.UserID(), model.UserID(""))
}

func TestNewMessageID(t *testing.T) {
	first := model.NewMessageID()
	second := model.NewMessageID()
	gt.NotEqual(t, first, second)
	gt.NotEqual(t, first, model.MessageID(""))
}
