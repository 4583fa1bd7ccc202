package repository

import "github.com/go-sql-driver/mysql"

var (
	mysqlErr1205 = mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded; try restarting transaction"}
	mysqlErr1213 = mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"}
	mysqlErr1062 = mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
)
