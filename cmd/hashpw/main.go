// Command hashpw prints the bcrypt hash to put in OWNER_PASSWORD_HASH.
//
//	hashpw -cost 12 < password.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/sleeping-barber/internal/utils"
)

var cost = flag.Int("cost", 0, "bcrypt cost (0 selects the library default)")

func main() {
	flag.Parse()
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("hashpw: read password: %v", err)
	}
	hash, err := utils.HashPassword(strings.TrimRight(line, "\r\n"), *cost)
	if err != nil {
		log.Fatalf("hashpw: %v", err)
	}
	fmt.Println(hash)
}
