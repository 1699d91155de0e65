// Package types is the real-time wire protocol. Every frame is
// {"type": <kind>, "data": {...}}.
//
// Client -> Server
// joinRoom:
//   roomCode: string
//
// submitStat (claim, on your turn):
//   roomCode: string
//   cardIndex: number
//   stat: "runs" | "wickets" | "battingAverage" | "strikeRate" |
//         "matchesPlayed" | "centuries" | "fiveWicketHauls" | "economy"
//   value: number
//
// challenge (contest the open claim):
//   roomCode, cardIndex, stat, value as above; stat must match the claim
//
// gaveUp (concede the open claim):
//   roomCode: string
//
// Server -> Client
// joined:             roomCode, playerId, seatIndex
// countdown:          value
// gameStart:          {}
// gameData:           players[{socketId, cardCount}], currentTurn, round, cards[], scores{}
// challengeInitiated: activePlayer, stat, timeRemaining, isConfirmation
// statQuoted:         activePlayer, stat, timeRemaining, isConfirmation
// roundResult:        winner, stat, submissions{id: {stat, value}}, scores{},
//                     eliminated[], voided, gameState (gameData)
// gameEnd:            winner (null when no seat is left), scores{}
// error:              message (sent only to the connection that caused it)
package types
