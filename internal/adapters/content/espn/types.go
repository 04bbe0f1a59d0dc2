package espn

import (
	"encoding/json"
	"strconv"
	"strings"
)

type scoreboardResponse struct {
	Events []event `json:"events"`
}

type event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Status       status        `json:"status"`
	Competitions []competition `json:"competitions"`
}

type competition struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	Status      *status      `json:"status"`
	Competitors []competitor `json:"competitors"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    points `json:"score"`
	Team     team   `json:"team"`
}

type team struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ShortDisplayName string `json:"shortDisplayName"`
	Name             string `json:"name"`
	Abbreviation     string `json:"abbreviation"`
}

type status struct {
	Type statusType `json:"type"`
}

type statusType struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Completed bool   `json:"completed"`
}

type summaryResponse struct {
	Header   summaryHeader `json:"header"`
	Boxscore boxscore      `json:"boxscore"`
}

type summaryHeader struct {
	ID           string        `json:"id"`
	Competitions []competition `json:"competitions"`
}

type boxscore struct {
	Teams []boxscoreTeam `json:"teams"`
}

type boxscoreTeam struct {
	Team       team       `json:"team"`
	Statistics []statLine `json:"statistics"`
}

type statLine struct {
	Name         string `json:"name"`
	DisplayValue string `json:"displayValue"`
}

// points accepts scores encoded either as JSON numbers or strings, since
// the scoreboard and summary endpoints disagree.
type points int

func (p *points) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		var f float64
		if ferr := json.Unmarshal([]byte(s), &f); ferr != nil {
			return err
		}
		n = int(f)
	}
	*p = points(n)
	return nil
}
