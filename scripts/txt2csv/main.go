// Command txt2csv turns a plain list of invite codes, one per line, into the
// invite table the bot hands out from.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strings"

	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/logging"
	"github.com/linesmerrill/invite-bot/models"
)

func main() {
	in := flag.String("in", "codes.txt", "text file with one invite code per line")
	out := flag.String("out", "codes.csv", "invite table to write")
	flag.Parse()

	log := logging.New()
	defer func() { _ = log.Sync() }()

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalw("opening code list", "path", *in, "error", err)
	}
	defer f.Close()

	var rows []*models.InviteCode
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			continue
		}
		rows = append(rows, &models.InviteCode{Code: code, Position: len(rows)})
	}
	if err := scanner.Err(); err != nil {
		log.Fatalw("reading code list", "path", *in, "error", err)
	}
	if len(rows) == 0 {
		log.Fatalw("no invite codes found", "path", *in)
	}

	if err := databases.NewInviteCSVDatabase(*out).SaveAll(context.Background(), rows); err != nil {
		log.Fatalw("writing invite table", "path", *out, "error", err)
	}
	log.Infow("invite table written", "path", *out, "codes", len(rows))
}
