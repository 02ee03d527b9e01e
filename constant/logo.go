package constant

// Logo is the banner printed on top of the root command help.
const Logo = `  _
 | | ____ _ _ __ __ _
 | |/ / _' | '__/ _' |
 |   < (_| | | | (_| |
 |_|\_\__,_|_|  \__,_|`
