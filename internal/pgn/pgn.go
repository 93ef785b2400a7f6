// Package pgn converts raw PGN movetext into per-game position sequences
// for analysis. Games are isolated from each other: one malformed game
// carries its parse error while the rest of the batch proceeds.
package pgn

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/notnil/chess"
	"golang.org/x/sync/errgroup"
)

// ErrMalformedGame indicates a game whose movetext could not be resolved
// against the rules of chess (illegal move, ambiguous notation, truncated
// game). The failing game carries this error; other games are unaffected.
var ErrMalformedGame = errors.New("pgn: malformed game")

// Position is one board state in a game's trajectory.
type Position struct {
	// FEN is the full position in Forsyth-Edwards Notation.
	FEN string

	// WhiteToMove reports whose turn it is in this position.
	WhiteToMove bool

	// Checkmate and Stalemate flag terminal positions. Only the final
	// position of a game can carry either.
	Checkmate bool
	Stalemate bool
}

// Ply is one half-move of a game.
type Ply struct {
	// Index is 1-based; White's first move is 1.
	Index int

	// SAN is the move in standard algebraic notation, UCI in coordinate
	// notation.
	SAN string
	UCI string
}

// Game is one parsed game of a batch. A malformed game has Err set and
// empty Plies/Positions.
type Game struct {
	// Number is the game's 1-based ordinal position in the input batch.
	Number int

	White string
	Black string
	Event string
	Site  string
	Date  string
	Round string

	// Result is the PGN result tag ("1-0", "0-1", "1/2-1/2", "*").
	Result string

	// Plies holds the moves in order; Positions holds the trajectory
	// P0..PN where P0 is the position before ply 1 and Pk the position
	// after ply k, so len(Positions) == len(Plies)+1.
	Plies     []Ply
	Positions []Position

	Err error
}

// Parse splits the stream into games and parses each independently.
// The returned slice has one entry per game in input order; per-game
// parse failures are recorded on the Game, not returned. A read failure
// of the underlying stream is the only error condition.
func Parse(r io.Reader) ([]*Game, error) {
	chunks, err := split(r)
	if err != nil {
		return nil, fmt.Errorf("reading PGN: %w", err)
	}

	// Games are independent, so movetext resolution parallelizes cleanly.
	games := make([]*Game, len(chunks))
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for i, chunk := range chunks {
		eg.Go(func() error {
			games[i] = parseGame(i+1, chunk)
			return nil
		})
	}
	_ = eg.Wait()

	return games, nil
}

// split cuts the raw stream into per-game chunks on "[Event " boundaries.
// Text before the first tag section (a headerless game) forms its own chunk.
func split(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines.
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var chunks []string
	var gameText strings.Builder

	flush := func() {
		if strings.TrimSpace(gameText.String()) != "" {
			chunks = append(chunks, gameText.String())
		}
		gameText.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "[Event ") {
			flush()
		}
		gameText.WriteString(line)
		gameText.WriteString("\n")
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}

func parseGame(number int, text string) *Game {
	g := &Game{
		Number: number,
		White:  "?",
		Black:  "?",
		Event:  "?",
		Site:   "?",
		Date:   "?",
		Round:  "?",
		Result: "*",
	}

	pgnFunc, err := chess.PGN(strings.NewReader(text))
	if err != nil {
		g.Err = fmt.Errorf("%w: %v", ErrMalformedGame, err)
		return g
	}
	game := chess.NewGame(pgnFunc)

	g.White = tagValue(game, "White", g.White)
	g.Black = tagValue(game, "Black", g.Black)
	g.Event = tagValue(game, "Event", g.Event)
	g.Site = tagValue(game, "Site", g.Site)
	g.Date = tagValue(game, "Date", g.Date)
	g.Round = tagValue(game, "Round", g.Round)
	g.Result = tagValue(game, "Result", game.Outcome().String())

	moves := game.Moves()
	positions := game.Positions()

	san := chess.AlgebraicNotation{}
	uci := chess.UCINotation{}

	g.Positions = make([]Position, len(positions))
	for i, pos := range positions {
		g.Positions[i] = Position{
			FEN:         pos.String(),
			WhiteToMove: pos.Turn() == chess.White,
		}
	}

	g.Plies = make([]Ply, len(moves))
	for i, m := range moves {
		g.Plies[i] = Ply{
			Index: i + 1,
			SAN:   san.Encode(positions[i], m),
			UCI:   uci.Encode(positions[i], m),
		}
	}

	// Terminal status is only possible in the final position. Knowing it
	// up front lets the pipeline score checkmate/stalemate without asking
	// the oracle.
	if n := len(positions); n > 0 {
		switch positions[n-1].Status() {
		case chess.Checkmate:
			g.Positions[n-1].Checkmate = true
		case chess.Stalemate:
			g.Positions[n-1].Stalemate = true
		}
	}

	return g
}

// tagValue reads a PGN tag pair, falling back when the tag is absent.
func tagValue(g *chess.Game, key, fallback string) string {
	if pair := g.GetTagPair(key); pair != nil && pair.Value != "" {
		return pair.Value
	}
	return fallback
}
