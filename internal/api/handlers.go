package api

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/Raspberrynani/ft-solocendence/internal/storage"
)

// verifyPrefixLen is how many hex characters of the hour-bucketed digest a
// client must present to prove knowledge of a nickname.
const verifyPrefixLen = 10

type entryView struct {
	Name string `json:"name"`
	Wins int    `json:"wins"`
}

func (s *Server) handleEntries(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	players, err := s.store.TopPlayers(s.cfg.Storage.LeaderboardSize)
	if err != nil {
		s.logger.Error("leaderboard query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": lo.Map(players, func(p storage.Player, _ int) entryView {
		return entryView{Name: p.Name, Wins: p.Wins}
	})})
}

func (s *Server) handlePlayer(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	player, err := s.store.GetPlayer(c.Param("name"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	if err != nil {
		s.logger.Error("player query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":         player.Name,
		"wins":         player.Wins,
		"games_played": player.GamesPlayed,
		"win_ratio":    player.WinRatio(),
		"rank_class":   player.RankClass(),
	})
}

type endGameRequest struct {
	Nickname string `json:"nickname"`
	Token    string `json:"token"`
	Score    *int   `json:"score"`
}

// handleEndGame is the external write-through used by clients that report
// their own finished games. The realtime engine records results directly
// through the stats sink.
func (s *Server) handleEndGame(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	var req endGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Token == "" || req.Score == nil || req.Nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token or score"})
		return
	}
	if err := s.store.RecordResult(req.Nickname, true, *req.Score); err != nil {
		s.logger.Error("end_game record failed", "nickname", req.Nickname, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not record win"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Win recorded"})
}

func (s *Server) handleCSRF(c *gin.Context) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	token := hex.EncodeToString(buf)
	c.SetCookie("csrftoken", token, 3600, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

type verifyRequest struct {
	Nickname string `json:"nickname"`
	Hash     string `json:"hash"`
}

// verifyHash checks an hour-bucketed SHA-256 prefix: the first
// verifyPrefixLen hex chars of sha256(nickname + YYYYMMDDHH) in UTC.
func verifyHash(nickname, presented string) bool {
	bucket := time.Now().UTC().Format("2006010215")
	sum := sha256.Sum256([]byte(nickname + bucket))
	return hex.EncodeToString(sum[:])[:verifyPrefixLen] == presented
}

func (s *Server) handleCheckPlayer(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !verifyHash(req.Nickname, req.Hash) {
		c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
		return
	}
	exists, err := s.store.Exists(req.Nickname)
	if err != nil {
		s.logger.Error("check_player failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (s *Server) handleDeletePlayer(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !verifyHash(req.Nickname, req.Hash) {
		c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
		return
	}
	err := s.store.DeletePlayer(req.Nickname)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	if err != nil {
		s.logger.Error("delete_player failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Player data deleted"})
}
