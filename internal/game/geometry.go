package game

import (
	"math"
	"math/rand"

	"nexus-arena/internal/config"
)

func dist(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampToArena forces a point inside the arena, inset by the margin.
// Client coordinates are never trusted verbatim.
func clampToArena(x, y float64, arena config.ArenaConfig) (float64, float64) {
	return clamp(x, arena.Margin, arena.Width-arena.Margin),
		clamp(y, arena.Margin, arena.Height-arena.Margin)
}

// spawnCandidates returns the fixed candidate spawn set: the four quarter
// points and the center of the arena.
func spawnCandidates(arena config.ArenaConfig) [][2]float64 {
	w, h := arena.Width, arena.Height
	return [][2]float64{
		{w * 0.25, h * 0.25},
		{w * 0.75, h * 0.25},
		{w * 0.25, h * 0.75},
		{w * 0.75, h * 0.75},
		{w * 0.5, h * 0.5},
	}
}

// farthestSpawn picks the candidate maximizing the minimum distance to all
// occupied positions, then jitters it by up to ±50 units on each axis.
func farthestSpawn(arena config.ArenaConfig, occupied [][2]float64, rng *rand.Rand) (float64, float64) {
	candidates := spawnCandidates(arena)
	best := candidates[0]
	bestScore := -1.0

	for _, c := range candidates {
		minDist := math.MaxFloat64
		for _, o := range occupied {
			if d := dist(c[0], c[1], o[0], o[1]); d < minDist {
				minDist = d
			}
		}
		if len(occupied) == 0 {
			minDist = rng.Float64() // No occupants: pick any candidate
		}
		if minDist > bestScore {
			bestScore = minDist
			best = c
		}
	}

	x := best[0] + (rng.Float64()-0.5)*100
	y := best[1] + (rng.Float64()-0.5)*100
	return clampToArena(x, y, arena)
}

// bestOfNPlacement samples n random points and keeps the one maximizing the
// minimum distance to all players. Used for power-up placement, which favors
// spots away from everyone rather than the true optimum.
func bestOfNPlacement(arena config.ArenaConfig, players [][2]float64, n int, rng *rand.Rand) (float64, float64) {
	bestX := arena.Margin + rng.Float64()*(arena.Width-2*arena.Margin)
	bestY := arena.Margin + rng.Float64()*(arena.Height-2*arena.Margin)
	bestScore := -1.0

	for i := 0; i < n; i++ {
		x := arena.Margin + rng.Float64()*(arena.Width-2*arena.Margin)
		y := arena.Margin + rng.Float64()*(arena.Height-2*arena.Margin)

		minDist := math.MaxFloat64
		for _, p := range players {
			if d := dist(x, y, p[0], p[1]); d < minDist {
				minDist = d
			}
		}
		if len(players) == 0 {
			minDist = rng.Float64()
		}
		if minDist > bestScore {
			bestScore = minDist
			bestX, bestY = x, y
		}
	}
	return bestX, bestY
}
