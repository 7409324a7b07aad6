package banner

import "github.com/fatih/color"

const Version = "1.0.0"

// GetBanner returns the scanner banner
func GetBanner() string {
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	banner := `
` + cyan(`
▐▄• ▄ .▄▄ · .▄▄ ·  ▄▄▄· ▄· ▄▌
 █▌█▌▪▐█ ▀. ▐█ ▀. ▐█ ▄█▐█▪██▌
 ·██·  ▄▀▀▀█▄▄▀▀▀█▄ ██▀·▐█▌▐█▪
▪▐█·█▌▐█▄▪▐█▐█▄▪▐█▐█▪·• ▐█▀·.
•▀▀ ▀▀ ▀▀▀▀  ▀▀▀▀ .▀     ▀ •
`) + `
      ` + red(`xsspy - Reflected XSS Scanner v`+Version) + `
` + yellow(`  payloads in, verdicts out, judged by the analysis server`) + `

` + cyan(`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`) + `
`
	return banner
}

// Judge returns the one-line startup banner of the analysis server
func Judge(provider, addr string) string {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	return cyan("xsspy-judge v"+Version) + " provider=" + yellow(provider) + " listen=" + yellow(addr)
}
