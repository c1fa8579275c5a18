package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rajamantri/network"
)

func TestParse(t *testing.T) {
	id, req, err := parse("join ABC234 Mary Jane")
	require.NoError(t, err)
	assert.EqualValues(t, network.MsgTypeJoinRoom, id)
	assert.Equal(t, network.JoinRoomRequest{RoomID: "ABC234", PlayerName: "Mary Jane"}, req)

	id, req, err = parse("GUESS Bob")
	require.NoError(t, err)
	assert.EqualValues(t, network.MsgTypeGuess, id)
	assert.Equal(t, network.GuessRequest{SuspectName: "Bob"}, req)

	id, _, err = parse("   ")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, _, err = parse("create")
	assert.Error(t, err)

	_, _, err = parse("dance")
	assert.Error(t, err)
}
