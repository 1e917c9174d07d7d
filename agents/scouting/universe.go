package scouting

// nifty50Symbols is the screening universe in Yahoo Finance symbol format.
var nifty50Symbols = []string{
	"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "ICICIBANK.NS", "INFY.NS",
	"HINDUNILVR.NS", "ITC.NS", "SBIN.NS", "BHARTIARTL.NS", "LICI.NS",
	"LT.NS", "HCLTECH.NS", "AXISBANK.NS", "MARUTI.NS", "TITAN.NS",
	"SUNPHARMA.NS", "BAJFINANCE.NS", "ONGC.NS", "WIPRO.NS", "NTPC.NS",
	"NESTLEIND.NS", "POWERGRID.NS", "ULTRACEMCO.NS", "BAJAJFINSV.NS", "COALINDIA.NS",
	"TATAMOTORS.NS", "JSWSTEEL.NS", "HDFCLIFE.NS", "ADANIENT.NS", "ADANIPORTS.NS",
	"TATASTEEL.NS", "DIVISLAB.NS", "SBILIFE.NS", "HINDALCO.NS", "GRASIM.NS",
	"IOC.NS", "ASIANPAINT.NS", "M&M.NS", "ADANIGREEN.NS", "TECHM.NS",
	"BPCL.NS", "APOLLOHOSP.NS", "KOTAKBANK.NS", "MARICO.NS",
	"PIDILITIND.NS", "GODREJCP.NS", "EICHERMOT.NS", "SIEMENS.NS", "DABUR.NS",
}

// Universe returns the list of symbols the agent screens.
func Universe() []string {
	out := make([]string, len(nifty50Symbols))
	copy(out, nifty50Symbols)
	return out
}
